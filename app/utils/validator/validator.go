package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var factorCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Validator wraps the go-playground validator with custom rules.
type Validator struct {
	validator *validator.Validate
}

// New creates a new validator instance with custom rules.
func New() *Validator {
	validate := validator.New()

	registerCustomValidators(validate)

	// Use JSON field names for validation error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator: validate,
	}
}

// Validate validates a struct and returns validation errors.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return NewValidationError(err.(validator.ValidationErrors))
	}
	return nil
}

// ValidateVar validates a single variable against a tag.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

// ValidationError represents a validation error with user-friendly
// messages. Field values are deliberately absent: login requests carry
// secrets.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	var messages []string
	for field, message := range e.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, message))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

// NewValidationError creates a ValidationError from validator.ValidationErrors.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	errors := make(map[string]string)

	for _, err := range errs {
		field := err.Field()

		switch err.Tag() {
		case "required":
			errors[field] = fmt.Sprintf("%s is required", field)
		case "min":
			errors[field] = fmt.Sprintf("%s must be at least %s characters long", field, err.Param())
		case "max":
			errors[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case "factor_code":
			errors[field] = "second factor code must be exactly 6 digits"
		case "owner_id":
			errors[field] = "owner ID must contain only letters, numbers, dots, hyphens and underscores"
		default:
			errors[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return &ValidationError{Errors: errors}
}

// registerCustomValidators registers custom validation rules.
func registerCustomValidators(validate *validator.Validate) {
	// Second factor codes: the provider accepts fixed-length numeric codes.
	// The provider remains the source of truth for correctness; this only
	// rejects obviously malformed input before it goes on the wire.
	validate.RegisterValidation("factor_code", func(fl validator.FieldLevel) bool {
		return factorCodePattern.MatchString(fl.Field().String())
	})

	// Owner IDs: letters, numbers, dots, hyphens, underscores.
	validate.RegisterValidation("owner_id", func(fl validator.FieldLevel) bool {
		return regexp.MustCompile(`^[a-zA-Z0-9._-]+$`).MatchString(fl.Field().String())
	})
}
