package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")

	// ErrAuthorityUnavailable el servicio del SAT no respondió (timeout, red, 502-504).
	// Se traduce a "Sin Verificar" y nunca bloquea el guardado.
	ErrAuthorityUnavailable = errors.New("servicio del SAT no disponible")
	// ErrAuthorityProtocol el SAT respondió pero la respuesta no es interpretable
	// (SOAP Fault, envelope mal formado, estructura inesperada).
	ErrAuthorityProtocol = errors.New("respuesta del SAT no válida")
)

// FieldError error de entrada que nombra el campo faltante o mal formado.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Unwrap permite errors.Is(err, ErrInvalidInput).
func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// NewFieldError construye un error de entrada para el campo indicado.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
