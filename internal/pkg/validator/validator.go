package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a tagged struct and flattens the field violations
// into a single error message.
func Struct(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	violations := make([]string, 0, len(ves))
	for _, fe := range ves {
		violations = append(violations, fe.Namespace()+" violates "+fe.Tag())
	}
	return errors.Errorf("invalid configuration: %s", strings.Join(violations, ", "))
}
