package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail campo rechazado por la validación del request.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

// newValidator reporta los campos con su nombre JSON (o de formulario).
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	return v
}

// Validate aplica las etiquetas `validate` de s.
func Validate(s any) error {
	return validate.Struct(s)
}

// ValidationDetails traduce un error de Validate a detalles por campo.
func ValidationDetails(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "campo requerido"
	case "max":
		return "máximo " + e.Param() + " caracteres"
	case "min":
		return "mínimo " + e.Param() + " caracteres"
	default:
		return "valor inválido"
	}
}
