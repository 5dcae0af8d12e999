package sat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// uuidLen longitud del folio fiscal canónico (8-4-4-4-12 con guiones).
const uuidLen = 36

// NormalizeUUID recorta espacios y pasa a mayúsculas.
func NormalizeUUID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsUUID indica si s (ya normalizado) es un folio fiscal canónico: 36 caracteres
// hexadecimales en mayúsculas con guiones. Con esa longitud uuid.Parse exige los guiones
// en su lugar y rechaza las formas urn: o con llaves.
func IsUUID(s string) bool {
	if len(s) != uuidLen || s != strings.ToUpper(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidateUUID valida el folio fiscal tras normalizarlo.
func ValidateUUID(s string) error {
	n := NormalizeUUID(s)
	if n == "" {
		return fmt.Errorf("sat: UUID vacío")
	}
	if len(n) != uuidLen {
		return fmt.Errorf("sat: UUID %q no tiene el formato canónico de 36 caracteres", n)
	}
	if _, err := uuid.Parse(n); err != nil {
		return fmt.Errorf("sat: UUID inválido: %w", err)
	}
	return nil
}
