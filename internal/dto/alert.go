package dto

import "time"

type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// Met reports whether price satisfies the condition against target.
// Both comparisons are inclusive.
func (c AlertCondition) Met(price, target float64) bool {
	switch c {
	case ConditionAbove:
		return price >= target
	case ConditionBelow:
		return price <= target
	default:
		return false
	}
}

const (
	AlertKindManual = "manual"
	AlertKindSmart  = "smart"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

type CreateAlertRequest struct {
	AssetID     string  `json:"asset_id" validate:"required,max=64"`
	Symbol      string  `json:"symbol" validate:"max=20"`
	Name        string  `json:"name" validate:"max=100"`
	Condition   string  `json:"condition" validate:"required,oneof=above below"`
	TargetPrice float64 `json:"target_price" validate:"gt=0"`
	Currency    string  `json:"currency" default:"eur" validate:"required,len=3,lowercase"`
	Notes       string  `json:"notes" validate:"max=500"`
}

type CreateSmartAlertRequest struct {
	AssetID string `json:"asset_id" validate:"required,max=64"`
}

type UpdateAlertRequest struct {
	Condition   *string  `json:"condition" validate:"omitempty,oneof=above below"`
	TargetPrice *float64 `json:"target_price" validate:"omitempty,gt=0"`
	Active      *bool    `json:"active"`
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Notes       *string  `json:"notes" validate:"omitempty,max=500"`
}

type AlertFilter struct {
	AssetID   string `query:"asset_id"`
	Kind      string `query:"kind"`
	Active    *bool  `query:"active"`
	Triggered *bool  `query:"triggered"`
}

const EventAlertTriggered = "alert_triggered"

type NotificationEvent struct {
	Type        string    `json:"type"`
	AlertID     string    `json:"alert_id"`
	Owner       string    `json:"owner"`
	AssetID     string    `json:"asset_id"`
	Symbol      string    `json:"symbol"`
	Condition   string    `json:"condition"`
	TargetPrice float64   `json:"target_price"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Severity    string    `json:"severity,omitempty"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}
