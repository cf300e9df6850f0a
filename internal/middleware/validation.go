package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ezhealth/appointment-api/internal/schedule"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator:
// `slot` accepts catalog slot labels. Field names in errors follow the json tags.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
			_, ok := schedule.Normalize(fl.Field().String())
			return ok
		}); err != nil {
			panic(err)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	})
}

var tagMessages = map[string]string{
	"required": "is required",
	"uuid":     "must be a valid id",
	"slot":     "must be a valid time slot",
	"max":      "is too long",
	"min":      "is too short",
}

// BindingMessage turns a binding error into a short client message.
func BindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}

	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := tagMessages[e.Tag()]
		if !ok {
			msg = "is invalid"
		}
		parts = append(parts, e.Field()+" "+msg)
	}
	return strings.Join(parts, "; ")
}
