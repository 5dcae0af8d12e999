// Package cfdi contiene el núcleo de evidencia fiscal de un CFDI: la tupla canónica
// {UUID, RFC emisor, RFC receptor, total}, su extracción desde texto o QR, la
// conciliación entre fuentes y el estado devuelto por el SAT.
//
// Nada en este paquete hace I/O; las fuentes de texto y la consulta remota viven en
// la capa de aplicación e infraestructura.
package cfdi

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// Nombres de campo usados en diferencias, faltantes y errores de entrada.
const (
	FieldUUID        = "uuid"
	FieldRFCEmisor   = "rfcEmisor"
	FieldRFCReceptor = "rfcReceptor"
	FieldTotal       = "total"
)

// FiscalTuple tupla canónica de un CFDI. Un string vacío o un Total no válido equivalen
// a "no encontrado". Se crea por cada extracción y solo se completa campo a campo.
type FiscalTuple struct {
	UUID            string
	RFCEmisor       string
	RFCReceptor     string
	Total           decimal.NullDecimal
	RFCsEncontrados []string
}

// NewFiscalTuple construye una tupla normalizada a partir de valores ya conocidos
// (registro estructurado). Los valores vacíos se conservan vacíos.
func NewFiscalTuple(uuid, rfcEmisor, rfcReceptor string, total *decimal.Decimal) FiscalTuple {
	t := FiscalTuple{
		UUID:        sat.NormalizeUUID(uuid),
		RFCEmisor:   sat.NormalizeRFC(rfcEmisor),
		RFCReceptor: sat.NormalizeRFC(rfcReceptor),
	}
	if total != nil {
		t.Total = decimal.NewNullDecimal(*total)
	}
	return t
}

// MissingFields nombres de los campos de la tupla que siguen vacíos, en orden fijo.
func (t FiscalTuple) MissingFields() []string {
	var out []string
	if t.UUID == "" {
		out = append(out, FieldUUID)
	}
	if t.RFCEmisor == "" {
		out = append(out, FieldRFCEmisor)
	}
	if t.RFCReceptor == "" {
		out = append(out, FieldRFCReceptor)
	}
	if !t.Total.Valid {
		out = append(out, FieldTotal)
	}
	return out
}

// IsComplete indica si los cuatro campos están presentes.
func (t FiscalTuple) IsComplete() bool {
	return len(t.MissingFields()) == 0
}

// Merge devuelve una tupla con los campos de preferred y, donde estén vacíos, los de
// fallback. Los RFCs encontrados se unen sin duplicados.
func Merge(preferred, fallback FiscalTuple) FiscalTuple {
	out := preferred
	if out.UUID == "" {
		out.UUID = fallback.UUID
	}
	if out.RFCEmisor == "" {
		out.RFCEmisor = fallback.RFCEmisor
	}
	if out.RFCReceptor == "" {
		out.RFCReceptor = fallback.RFCReceptor
	}
	if !out.Total.Valid {
		out.Total = fallback.Total
	}
	out.RFCsEncontrados = appendUnique(append([]string(nil), preferred.RFCsEncontrados...), fallback.RFCsEncontrados...)
	return out
}

// MarshalJSON serializa los campos ausentes como null.
func (t FiscalTuple) MarshalJSON() ([]byte, error) {
	type tupleJSON struct {
		UUID            *string          `json:"uuid"`
		RFCEmisor       *string          `json:"rfcEmisor"`
		RFCReceptor     *string          `json:"rfcReceptor"`
		Total           *decimal.Decimal `json:"total"`
		RFCsEncontrados []string         `json:"rfcsEncontrados"`
	}
	out := tupleJSON{
		UUID:            nullable(t.UUID),
		RFCEmisor:       nullable(t.RFCEmisor),
		RFCReceptor:     nullable(t.RFCReceptor),
		RFCsEncontrados: t.RFCsEncontrados,
	}
	if t.Total.Valid {
		total := t.Total.Decimal
		out.Total = &total
	}
	if out.RFCsEncontrados == nil {
		out.RFCsEncontrados = []string{}
	}
	return json.Marshal(out)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
