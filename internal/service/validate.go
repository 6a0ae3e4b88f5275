package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/msomdec/updog/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,24}$`)

// Validator checks the shape of input value objects before any business
// rule runs. Failures wrap domain.ErrValidationFailed.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator with the forum's custom tags registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// bcrypt ignores everything past 72 bytes.
	v.RegisterAlias("pwd", "min=8,max=72")
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

// Struct validates s against its validate tags.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fe.Field()+" "+fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(details, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "username":
		return "must be 3-24 letters, digits, '_' or '-'"
	case "pwd":
		return "must be 8-72 characters long"
	case "min":
		return "must be at least " + fe.Param() + " characters long"
	case "max":
		return "must be at most " + fe.Param() + " characters long"
	default:
		return "failed '" + fe.Tag() + "' validation"
	}
}
