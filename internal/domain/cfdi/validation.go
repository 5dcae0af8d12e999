package cfdi

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// ConsultaSAT datos normalizados de una consulta al SAT.
type ConsultaSAT struct {
	RFCEmisor   string
	RFCReceptor string
	Total       decimal.Decimal
	UUID        string
}

// NewConsultaSAT valida y normaliza los cuatro datos de la consulta. Los errores
// envuelven domain.ErrInvalidInput y nombran cada campo inválido.
func NewConsultaSAT(rfcEmisor, rfcReceptor, total, uuid string) (ConsultaSAT, error) {
	var errs []error
	c := ConsultaSAT{
		RFCEmisor:   sat.NormalizeRFC(rfcEmisor),
		RFCReceptor: sat.NormalizeRFC(rfcReceptor),
		UUID:        sat.NormalizeUUID(uuid),
	}

	if err := sat.ValidateRFC(c.RFCEmisor); err != nil {
		errs = append(errs, domain.NewFieldError(FieldRFCEmisor, reason(err)))
	}
	if err := sat.ValidateRFC(c.RFCReceptor); err != nil {
		errs = append(errs, domain.NewFieldError(FieldRFCReceptor, reason(err)))
	}

	raw := strings.TrimPrefix(strings.TrimSpace(total), "$")
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	switch v, err := decimal.NewFromString(raw); {
	case raw == "":
		errs = append(errs, domain.NewFieldError(FieldTotal, "total vacío"))
	case err != nil:
		errs = append(errs, domain.NewFieldError(FieldTotal, "total no es un número decimal"))
	case !v.IsPositive():
		errs = append(errs, domain.NewFieldError(FieldTotal, "total debe ser mayor que cero"))
	default:
		c.Total = v.Round(2)
	}

	if err := sat.ValidateUUID(c.UUID); err != nil {
		errs = append(errs, domain.NewFieldError(FieldUUID, reason(err)))
	}

	if len(errs) > 0 {
		return ConsultaSAT{}, errors.Join(errs...)
	}
	return c, nil
}

// ConsultaFromTuple valida una tupla completa como consulta al SAT.
func ConsultaFromTuple(t FiscalTuple) (ConsultaSAT, error) {
	total := ""
	if t.Total.Valid {
		total = t.Total.Decimal.String()
	}
	return NewConsultaSAT(t.RFCEmisor, t.RFCReceptor, total, t.UUID)
}

// CacheKey clave de caché: RFC emisor|RFC receptor|total con 2 decimales|UUID.
func (c ConsultaSAT) CacheKey() string {
	return c.RFCEmisor + "|" + c.RFCReceptor + "|" + sat.FormatTotal(c.Total) + "|" + c.UUID
}

// Expresion expresión impresa que se envía al servicio Consulta.
func (c ConsultaSAT) Expresion() string {
	return sat.BuildExpression(c.RFCEmisor, c.RFCReceptor, c.Total, c.UUID)
}

// VerificationURL URL pública de verificación del comprobante.
func (c ConsultaSAT) VerificationURL() string {
	return sat.VerificationURL(c.RFCEmisor, c.RFCReceptor, c.Total, c.UUID)
}

// Tuple la consulta como tupla fiscal.
func (c ConsultaSAT) Tuple() FiscalTuple {
	total := c.Total
	return NewFiscalTuple(c.UUID, c.RFCEmisor, c.RFCReceptor, &total)
}

func reason(err error) string {
	return strings.TrimPrefix(err.Error(), "sat: ")
}
