package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"signal-alert-engine/internal/dto"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateRequest fills defaults and checks tags, reporting the first failing
// field as a *dto.ValidationError.
func validateRequest(ctx context.Context, v *validator.Validate, req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return &dto.ValidationError{Message: err.Error()}
	}
	err := v.StructCtx(ctx, req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return &dto.ValidationError{Field: fe.Field(), Message: fieldErrorMessage(fe)}
	}
	return &dto.ValidationError{Message: err.Error()}
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "lowercase":
		return "must be lowercase"
	default:
		return "failed validation: " + fe.Tag()
	}
}
