package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-verificador/internal/application/verification"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// Monto importe que acepta número o string JSON ("1,234.50", "$980").
type Monto string

func (m *Monto) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Monto(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = Monto(n.String())
	return nil
}

// ValidarSATRequest body para POST /api/cfdi/validar-sat y /api/cfdi/acuse.
type ValidarSATRequest struct {
	UUID        string `json:"uuid" validate:"required,max=40"`
	RFCEmisor   string `json:"rfcEmisor" validate:"required,max=13"`
	RFCReceptor string `json:"rfcReceptor" validate:"required,max=13"`
	Total       Monto  `json:"total" validate:"required,max=32"`
}

// RegistroRequest datos estructurados de referencia; todos opcionales.
type RegistroRequest struct {
	UUID        string `json:"uuid,omitempty" form:"uuid" validate:"max=40"`
	RFCEmisor   string `json:"rfcEmisor,omitempty" form:"rfcEmisor" validate:"max=13"`
	RFCReceptor string `json:"rfcReceptor,omitempty" form:"rfcReceptor" validate:"max=13"`
	Total       Monto  `json:"total,omitempty" form:"total" validate:"max=32"`
}

// IsEmpty indica que no se envió ningún campo.
func (r RegistroRequest) IsEmpty() bool {
	return r.UUID == "" && r.RFCEmisor == "" && r.RFCReceptor == "" && r.Total == ""
}

// Tuple normaliza el registro. Un total presente pero no numérico es un error de entrada.
func (r RegistroRequest) Tuple() (cfdi.FiscalTuple, error) {
	var total *decimal.Decimal
	if s := cleanMonto(string(r.Total)); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return cfdi.FiscalTuple{}, domain.NewFieldError(cfdi.FieldTotal, "total no es un número decimal")
		}
		total = &d
	}
	return cfdi.NewFiscalTuple(r.UUID, r.RFCEmisor, r.RFCReceptor, total), nil
}

// QRRequest body para POST /api/cfdi/qr.
type QRRequest struct {
	QR       string          `json:"qr" validate:"required,max=4096"`
	Registro RegistroRequest `json:"registro"`
}

func cleanMonto(s string) string {
	return strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
}

// DecisionDTO veredicto del SAT tal como lo consume el frontend.
type DecisionDTO struct {
	Success            bool      `json:"success"`
	Estado             string    `json:"estado"`
	EsValida           bool      `json:"esValida"`
	EsCancelada        bool      `json:"esCancelada"`
	NoEncontrada       bool      `json:"noEncontrada"`
	PermitirGuardar    bool      `json:"permitirGuardar"`
	Mensaje            string    `json:"mensaje"`
	CodigoEstatus      string    `json:"codigoEstatus,omitempty"`
	EsCancelable       string    `json:"esCancelable,omitempty"`
	EstatusCancelacion string    `json:"estatusCancelacion,omitempty"`
	ValidacionEFOS     string    `json:"validacionEFOS,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	FromCache          bool      `json:"fromCache"`
}

// NewDecisionDTO mapea el estado de autoridad. Success es false solo ante un error de
// protocolo del SAT.
func NewDecisionDTO(st cfdi.AuthorityStatus) DecisionDTO {
	return DecisionDTO{
		Success:            st.Estado != cfdi.EstadoError,
		Estado:             string(st.Estado),
		EsValida:           st.EsValida,
		EsCancelada:        st.EsCancelada,
		NoEncontrada:       st.NoEncontrada,
		PermitirGuardar:    st.PermitirGuardar,
		Mensaje:            st.Mensaje,
		CodigoEstatus:      st.CodigoEstatus,
		EsCancelable:       st.EsCancelable,
		EstatusCancelacion: st.EstatusCancelacion,
		ValidacionEFOS:     st.ValidacionEFOS,
		Timestamp:          st.ConsultadoEn,
		FromCache:          st.FromCache,
	}
}

// ValidacionResponse resultado de un flujo de validación.
type ValidacionResponse struct {
	Success         bool                       `json:"success"`
	Etapa           string                     `json:"etapa"`
	Completo        bool                       `json:"completo"`
	CamposFaltantes []string                   `json:"camposFaltantes"`
	Metodo          string                     `json:"metodo"`
	Datos           cfdi.FiscalTuple           `json:"datos"`
	Extraccion      *verification.Extraction   `json:"extraccion,omitempty"`
	Reconciliacion  *cfdi.ReconciliationResult `json:"reconciliacion,omitempty"`
	Decision        *DecisionDTO               `json:"decision,omitempty"`
	Mensaje         string                     `json:"mensaje"`
}

// NewValidacionResponse mapea el resultado del orquestador.
func NewValidacionResponse(res verification.ResultadoValidacion) ValidacionResponse {
	out := ValidacionResponse{
		Success:         res.Completo,
		Etapa:           string(res.Etapa),
		Completo:        res.Completo,
		CamposFaltantes: res.CamposFaltantes,
		Metodo:          string(res.Metodo),
		Datos:           res.Datos,
		Extraccion:      res.Extraccion,
		Reconciliacion:  res.Reconciliacion,
		Mensaje:         res.Mensaje,
	}
	if out.CamposFaltantes == nil {
		out.CamposFaltantes = []string{}
	}
	if res.Decision != nil {
		d := NewDecisionDTO(*res.Decision)
		out.Decision = &d
		out.Success = d.Success
	}
	return out
}

// CacheClearedResponse respuesta de DELETE /api/cfdi/cache.
type CacheClearedResponse struct {
	Success    bool   `json:"success"`
	Eliminadas int    `json:"eliminadas"`
	Mensaje    string `json:"mensaje"`
}
