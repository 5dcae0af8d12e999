package cfdi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode modo de conciliación.
type Mode int

const (
	// ModoEstricto QR contra registro estructurado: toda diferencia es crítica.
	ModoEstricto Mode = iota
	// ModoTolerante OCR contra registro: solo el UUID es crítico.
	ModoTolerante
)

func (m Mode) String() string {
	if m == ModoTolerante {
		return "tolerante"
	}
	return "estricto"
}

var (
	toleranciaEstricta   = decimal.New(1, -2)
	toleranciaPorcentual = decimal.NewFromInt(5)
	cien                 = decimal.NewFromInt(100)
)

// Difference diferencia encontrada en un campo. ValorA es el de referencia.
type Difference struct {
	Campo   string `json:"campo"`
	ValorA  string `json:"valorA"`
	ValorB  string `json:"valorB"`
	Critico bool   `json:"critico"`
	Nota    string `json:"nota,omitempty"`
}

// ReconciliationResult resultado de comparar dos tuplas. Coinciden es true si y solo si
// ninguna diferencia es crítica.
type ReconciliationResult struct {
	Coinciden              bool         `json:"coinciden"`
	Diferencias            []Difference `json:"diferencias"`
	PorcentajeCoincidencia float64      `json:"porcentajeCoincidencia"`
	CamposComparados       int          `json:"camposComparados"`
	Mensaje                string       `json:"mensaje"`
}

// Criticas diferencias críticas del resultado.
func (r ReconciliationResult) Criticas() []Difference {
	var out []Difference
	for _, d := range r.Diferencias {
		if d.Critico {
			out = append(out, d)
		}
	}
	return out
}

// Reconcile compara reference (registro de confianza) contra candidate (evidencia
// recuperada). Solo se comparan los campos presentes en ambas. No modifica sus entradas.
func Reconcile(reference, candidate FiscalTuple, mode Mode) ReconciliationResult {
	res := ReconciliationResult{Diferencias: []Difference{}}
	coincidencias := 0

	compareString := func(campo, a, b string, esRFC bool) {
		a, b = strings.ToUpper(strings.TrimSpace(a)), strings.ToUpper(strings.TrimSpace(b))
		if a == "" || b == "" {
			return
		}
		res.CamposComparados++
		if a == b {
			coincidencias++
			return
		}
		d := Difference{Campo: campo, ValorA: a, ValorB: b, Critico: true}
		if mode == ModoTolerante && esRFC {
			d.Critico = false
			if contains(candidate.RFCsEncontrados, a) {
				d.Nota = "el RFC del registro sí aparece en el documento, en otra posición"
			} else {
				d.Nota = "el RFC del registro no aparece en el documento"
			}
		}
		res.Diferencias = append(res.Diferencias, d)
	}

	compareString(FieldUUID, reference.UUID, candidate.UUID, false)
	compareString(FieldRFCEmisor, reference.RFCEmisor, candidate.RFCEmisor, true)
	compareString(FieldRFCReceptor, reference.RFCReceptor, candidate.RFCReceptor, true)

	if reference.Total.Valid && candidate.Total.Valid {
		a, b := reference.Total.Decimal, candidate.Total.Decimal
		res.CamposComparados++
		diff := a.Sub(b).Abs()
		switch {
		case diff.LessThanOrEqual(toleranciaEstricta):
			coincidencias++
		case mode == ModoTolerante:
			d := Difference{Campo: FieldTotal, ValorA: a.StringFixed(2), ValorB: b.StringFixed(2)}
			limite := a.Abs().Mul(toleranciaPorcentual).Div(cien)
			if diff.LessThanOrEqual(limite) {
				coincidencias++
				d.Nota = fmt.Sprintf("diferencia de %s dentro de tolerancia (5%%)", diff.StringFixed(2))
			} else {
				d.Nota = fmt.Sprintf("diferencia de %s fuera de tolerancia (5%%)", diff.StringFixed(2))
			}
			res.Diferencias = append(res.Diferencias, d)
		default:
			res.Diferencias = append(res.Diferencias, Difference{
				Campo: FieldTotal, ValorA: a.StringFixed(2), ValorB: b.StringFixed(2), Critico: true,
			})
		}
	}

	criticas := res.Criticas()
	res.Coinciden = len(criticas) == 0
	if res.CamposComparados > 0 {
		res.PorcentajeCoincidencia = float64(coincidencias) * 100 / float64(res.CamposComparados)
	}
	res.Mensaje = mensajeConciliacion(res, criticas)
	return res
}

func mensajeConciliacion(res ReconciliationResult, criticas []Difference) string {
	switch {
	case res.CamposComparados == 0:
		return "No hay campos en común para comparar"
	case len(criticas) > 0:
		campos := make([]string, 0, len(criticas))
		for _, d := range criticas {
			campos = append(campos, d.Campo)
		}
		return fmt.Sprintf("Se encontraron %d diferencia(s) crítica(s): %s", len(criticas), strings.Join(campos, ", "))
	case len(res.Diferencias) > 0:
		return fmt.Sprintf("Los datos coinciden con %d advertencia(s) no crítica(s)", len(res.Diferencias))
	default:
		return fmt.Sprintf("Los %d campos comparados coinciden", res.CamposComparados)
	}
}
