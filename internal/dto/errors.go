package dto

import (
	"errors"
	"fmt"
)

var (
	ErrNoSignal         = errors.New("no qualifying signal")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrAlertNotFound    = errors.New("alert not found")
	ErrJobNotFound      = errors.New("job not found")
)

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

type NoSignalError struct {
	AssetID   string
	Timeframe string
}

func (e *NoSignalError) Error() string {
	return fmt.Sprintf("no qualifying signal for %s (%s)", e.AssetID, e.Timeframe)
}

func (e *NoSignalError) Is(target error) bool {
	return target == ErrNoSignal
}

type PriceUnavailableError struct {
	AssetID  string
	Currency string
	Err      error
}

func (e *PriceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price unavailable for %s/%s: %v", e.AssetID, e.Currency, e.Err)
	}
	return fmt.Sprintf("price unavailable for %s/%s", e.AssetID, e.Currency)
}

func (e *PriceUnavailableError) Is(target error) bool {
	return target == ErrPriceUnavailable
}

func (e *PriceUnavailableError) Unwrap() error {
	return e.Err
}

// ExternalServiceError wraps a failed call to an upstream data source.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
