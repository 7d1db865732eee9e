package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures the binding validator to report field names
// from JSON tags instead of Go struct field names.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// FormatBindingError turns a binding failure into a message suitable for
// API clients. Validator errors are rendered per field; anything else
// (malformed JSON, type mismatches) passes through unchanged.
func FormatBindingError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, e.Field()+": "+validationMessage(e))
	}
	return strings.Join(parts, "; ")
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must have at least " + e.Param() + " entries"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "uuid":
		return "invalid UUID format"
	default:
		return "invalid value"
	}
}
