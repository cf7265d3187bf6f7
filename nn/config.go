package nn

import (
	"github.com/go-playground/validator/v10"

	"github.com/tensorforge/core/errs"
)

var configValidator = validator.New()

// ValidateConfig runs struct-tag validation (via go-playground/validator)
// over cfg and translates any failure into the module's own error
// taxonomy, so a malformed layer config is reported the same way as any
// other constructor-time argument error.
func ValidateConfig(cfg any) error {
	if err := configValidator.Struct(cfg); err != nil {
		return errs.FromValidation(err)
	}
	return nil
}
