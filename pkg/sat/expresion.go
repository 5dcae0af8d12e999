package sat

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const verificacionURL = "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx"

// FormatTotal formatea el total con exactamente dos decimales, como lo espera la consulta.
func FormatTotal(total decimal.Decimal) string {
	return total.Round(2).StringFixed(2)
}

// BuildExpression construye la expresión impresa del servicio Consulta:
//
//	?re=<RFC emisor>&rr=<RFC receptor>&tt=<total 2 decimales>&id=<UUID>
//
// El carácter & dentro de un RFC se envía como &amp; para no romper la expresión.
func BuildExpression(rfcEmisor, rfcReceptor string, total decimal.Decimal, uuid string) string {
	return fmt.Sprintf("?re=%s&rr=%s&tt=%s&id=%s",
		escapeRFC(NormalizeRFC(rfcEmisor)),
		escapeRFC(NormalizeRFC(rfcReceptor)),
		FormatTotal(total),
		NormalizeUUID(uuid),
	)
}

// VerificationURL URL pública de verificación (la misma que codifica el QR del CFDI).
func VerificationURL(rfcEmisor, rfcReceptor string, total decimal.Decimal, uuid string) string {
	return fmt.Sprintf("%s?id=%s&re=%s&rr=%s&tt=%s",
		verificacionURL,
		NormalizeUUID(uuid),
		escapeRFC(NormalizeRFC(rfcEmisor)),
		escapeRFC(NormalizeRFC(rfcReceptor)),
		FormatTotal(total),
	)
}

func escapeRFC(rfc string) string {
	return strings.ReplaceAll(rfc, "&", "&amp;")
}
