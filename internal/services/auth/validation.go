package auth

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidationError describes the first user-correctable problem with an input.
// It matches ErrValidationFailed under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// credentials is validated field by field in declaration order, so a bad
// username is reported before a bad PIN.
type credentials struct {
	Username string `validate:"required,min=3,max=20,username"`
	PIN      string `validate:"required,pin"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return pinPattern.MatchString(fl.Field().String())
	})
	return v
}

func (s *Service) validateCredentials(username, pin string) error {
	err := s.validate.Struct(credentials{Username: username, PIN: pin})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "request", Message: "Invalid request"}
	}

	first := fieldErrs[0]
	switch first.Field() {
	case "Username":
		if first.Tag() == "username" {
			return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
		}
		return &ValidationError{Field: "username", Message: "Username must be 3-20 characters"}
	default:
		return &ValidationError{Field: "pin", Message: "PIN must be exactly 4 digits"}
	}
}
