package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by the query or json name the client used.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds the request into req, fills its defaults and validates it.
// Problems come back as 400 AppErrors ready for BadRequestResponse; nil means req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []*AppError {
	if err := c.Bind(req); err != nil {
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		return []*AppError{NewAppError("ERR_BIND", "", msg, http.StatusBadRequest)}
	}
	if err := defaults.Set(req); err != nil {
		return []*AppError{NewAppError("ERR_DEFAULTS", "", err.Error(), http.StatusBadRequest)}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []*AppError {
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return []*AppError{NewAppError("ERR_VALIDATION", "", err.Error(), http.StatusBadRequest)}
	}
	out := make([]*AppError, 0, len(fes))
	for _, fe := range fes {
		e := NewAppError("ERR_"+strings.ToUpper(fe.Tag()), fe.Field(), fieldMessage(fe), http.StatusBadRequest)
		switch fe.Tag() {
		case "oneof":
			e.WithParam("options", strings.Fields(fe.Param()))
		case "min", "gte":
			e.WithParam("min", fe.Param())
		case "max", "lte":
			e.WithParam("max", fe.Param())
		}
		out = append(out, e)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
