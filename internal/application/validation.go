package application

import (
	"errors"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/go-playground/validator"
)

var validate = validator.New()

// Validate checks struct tags on a command and reports the first failing
// field as a domain validation error.
func Validate(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return domain.NewMissingRequiredFieldError(field)
		}
		return domain.NewValidationError("%s failed %s validation", field, fe.Tag())
	}
	return domain.NewValidationError("invalid request: %v", err)
}
