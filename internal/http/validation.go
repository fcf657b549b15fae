package http

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type structValidator struct{ v *validator.Validate }

func (s *structValidator) Validate(i any) error {
	return s.v.Struct(i)
}

// NewValidator returns an echo.Validator implementation.
func NewValidator() echo.Validator {
	return &structValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

type validationBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func validationResponse(err error) validationBody {
	fields := map[string][]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			fields[field] = append(fields[field], fe.Tag())
		}
	}
	if len(fields) == 0 {
		return validationBody{Error: err.Error(), Fields: fields}
	}
	return validationBody{Error: "validation_failed", Fields: fields}
}
