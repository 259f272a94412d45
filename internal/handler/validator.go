package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.  Handlers call
// c.Validate after c.Bind.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a validator keyed by JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }

// fieldMessages turns validation errors into one message per JSON field.
func fieldMessages(err error) map[string]string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make(map[string]string, len(ves))
	for _, fe := range ves {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind().String() == "string" {
			return "Minimum " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "containsany":
		if strings.ContainsAny(fe.Param(), "0123456789") {
			return "At least 1 digit"
		}
		return "At least 1 uppercase letter"
	case "eqfield":
		return "Passwords must match"
	}
	return "Invalid value"
}

// bindValid binds the body into dst and validates it.  On failure it writes
// the 400 response itself and returns ok=false.
func bindValid(c echo.Context, dst interface{}) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldMessages(err)})
	}
	return true, nil
}
