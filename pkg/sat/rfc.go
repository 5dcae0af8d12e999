package sat

import (
	"fmt"
	"regexp"
	"strings"
)

// rfcPattern: 3 letras (persona moral) o 4 (persona física), fecha AAMMDD y homoclave de 3.
var rfcPattern = regexp.MustCompile(`^[A-ZÑ&]{3,4}[0-9]{6}[A-Z0-9]{3}$`)

// NormalizeRFC recorta espacios y pasa a mayúsculas.
func NormalizeRFC(rfc string) string {
	return strings.ToUpper(strings.TrimSpace(rfc))
}

// IsRFC indica si s (ya normalizado) tiene la forma de un RFC (12 o 13 caracteres).
func IsRFC(s string) bool {
	return rfcPattern.MatchString(s)
}

// ValidateRFC valida la forma del RFC tras normalizarlo.
// rfc puede venir en minúsculas o con espacios alrededor.
func ValidateRFC(rfc string) error {
	n := NormalizeRFC(rfc)
	if n == "" {
		return fmt.Errorf("sat: RFC vacío")
	}
	if !IsRFC(n) {
		return fmt.Errorf("sat: RFC %q no tiene el formato esperado (3-4 letras + 6 dígitos + 3 alfanuméricos)", n)
	}
	return nil
}

// RFCSet conjunto inmutable de RFCs normalizados. El valor cero es un conjunto vacío válido.
type RFCSet struct {
	items map[string]struct{}
	order []string
}

// NewRFCSet construye un conjunto a partir de los RFCs dados (se normalizan y se ignoran vacíos).
func NewRFCSet(rfcs ...string) RFCSet {
	s := RFCSet{items: make(map[string]struct{}, len(rfcs))}
	for _, r := range rfcs {
		n := NormalizeRFC(r)
		if n == "" {
			continue
		}
		if _, ok := s.items[n]; ok {
			continue
		}
		s.items[n] = struct{}{}
		s.order = append(s.order, n)
	}
	return s
}

// Contains indica si el RFC pertenece al conjunto.
func (s RFCSet) Contains(rfc string) bool {
	_, ok := s.items[NormalizeRFC(rfc)]
	return ok
}

// With devuelve un conjunto nuevo con los RFCs adicionales; el receptor no se modifica.
func (s RFCSet) With(rfcs ...string) RFCSet {
	all := make([]string, 0, len(s.order)+len(rfcs))
	all = append(all, s.order...)
	all = append(all, rfcs...)
	return NewRFCSet(all...)
}

// Values devuelve una copia de los RFCs en orden de inserción.
func (s RFCSet) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len número de RFCs del conjunto.
func (s RFCSet) Len() int { return len(s.order) }
