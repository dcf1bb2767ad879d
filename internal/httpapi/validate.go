package httpapi

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validationError flattens go-playground/validator's field errors into a
// single message suitable for the invalid_request_error wire shape.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	first := fieldErrs[0]
	switch first.Tag() {
	case "required":
		return fmt.Errorf("%s is required", first.Field())
	case "min":
		return fmt.Errorf("%s must be at least %s", first.Field(), first.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", first.Field(), first.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", first.Field(), first.Param())
	default:
		return fmt.Errorf("%s failed validation on '%s'", first.Field(), first.Tag())
	}
}
