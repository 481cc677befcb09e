package domain

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the task-specific rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// numeric_max is only a bound when set above zero
		_ = validate.RegisterValidation("numeric_range", func(fl validator.FieldLevel) bool {
			max := fl.Field().Float()
			if max <= 0 {
				return true
			}
			min := fl.Parent().FieldByName("NumericMin")
			if !min.IsValid() {
				return true
			}
			return max >= min.Float()
		})
	})
	return validate
}

// Validate checks struct tags of templates and escalation rules.
func Validate(v any) error {
	return Validator().Struct(v)
}
