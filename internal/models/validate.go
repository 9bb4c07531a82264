package models

import (
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of an entity. Failures wrap
// common.ErrValidation and carry a message fit for end users.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s is invalid (%s)", common.ErrValidation, f.Field(), f.Tag())
		}
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
