package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
)

// requestValidator checks decoded request bodies against their validate tags.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()

	// Report fields by their JSON names so paths match the request body.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &requestValidator{validate: v}
}

// Struct returns the first failing field as a *domain.ValidationError.
func (v *requestValidator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", "invalid request body")
	}

	fe := fieldErrs[0]
	path := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(path, path+" is required")
	case "max":
		return domain.NewValidationError(path, fmt.Sprintf("%s must be at most %s characters", path, fe.Param()))
	default:
		return domain.NewValidationError(path, path+" is invalid")
	}
}
