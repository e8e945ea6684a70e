package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

// useJSONFieldNames makes binding errors report the json/form name of a
// field rather than the Go struct field name.
func useJSONFieldNames() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// bindingFieldErrors turns binding tag failures into one message per field.
// It returns nil when err is not a validation failure.
func bindingFieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, exists := fields[fe.Field()]; exists {
			continue
		}
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "This field is required."
		case "min":
			fields[fe.Field()] = "Ensure this value is greater than or equal to " + fe.Param() + "."
		case "max":
			fields[fe.Field()] = "Ensure this value is less than or equal to " + fe.Param() + "."
		default:
			fields[fe.Field()] = "Enter a valid value."
		}
	}
	return fields
}
