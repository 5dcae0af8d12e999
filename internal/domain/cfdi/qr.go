package cfdi

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// qrKeyPattern marca el inicio de cada parámetro de la expresión del SAT. Se corta por
// clave conocida y no por '&' porque un RFC puede contener '&'.
var qrKeyPattern = regexp.MustCompile(`(?i)(?:^|[?&])(id|re|rr|tt|fe)=`)

// qrParams parámetros reconocidos de la expresión, en mayúsculas.
type qrParams map[string]string

// parseQRQuery separa la expresión en sus parámetros. La primera aparición de cada
// clave gana; "&amp;" y los escapes %XX se resuelven.
func parseQRQuery(q string) qrParams {
	q = strings.ReplaceAll(q, "&amp;", "&")
	q = strings.ReplaceAll(q, "&AMP;", "&")

	out := qrParams{}
	idx := qrKeyPattern.FindAllStringSubmatchIndex(q, -1)
	for i, m := range idx {
		key := strings.ToUpper(q[m[2]:m[3]])
		end := len(q)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		if _, seen := out[key]; seen {
			continue
		}
		val := strings.TrimSpace(q[m[1]:end])
		if dec, err := url.QueryUnescape(val); err == nil {
			val = dec
		}
		out[key] = strings.TrimSpace(val)
	}
	return out
}

// tuple convierte los parámetros en tupla; los valores con formato inválido se descartan.
func (p qrParams) tuple() FiscalTuple {
	var t FiscalTuple
	if id := sat.NormalizeUUID(p["ID"]); sat.IsUUID(id) {
		t.UUID = id
	}
	if re := sat.NormalizeRFC(p["RE"]); sat.IsRFC(re) {
		t.RFCEmisor = re
		t.RFCsEncontrados = appendUnique(t.RFCsEncontrados, re)
	}
	if rr := sat.NormalizeRFC(p["RR"]); sat.IsRFC(rr) {
		t.RFCReceptor = rr
		t.RFCsEncontrados = appendUnique(t.RFCsEncontrados, rr)
	}
	if tt := strings.TrimSpace(p["TT"]); tt != "" {
		if v, err := decimal.NewFromString(strings.ReplaceAll(tt, ",", "")); err == nil && !v.IsNegative() {
			t.Total = decimal.NewNullDecimal(v)
		}
	}
	return t
}

// ParseQR extrae la tupla del contenido de un QR de CFDI. Acepta la URL completa de
// verificación o solo la expresión (?re=...&rr=...&tt=...&id=...), con claves en
// cualquier orden y mayúsculas o minúsculas. El parámetro fe se ignora.
func ParseQR(qr string) FiscalTuple {
	qr = strings.TrimSpace(qr)
	if i := strings.IndexByte(qr, '?'); i >= 0 {
		qr = qr[i:]
	}
	return parseQRQuery(qr).tuple()
}
