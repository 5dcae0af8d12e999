package cfdi

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// Estado estado del CFDI tal como se comunica al usuario.
type Estado string

const (
	EstadoVigente      Estado = "Vigente"
	EstadoCancelado    Estado = "Cancelado"
	EstadoNoEncontrado Estado = "No Encontrado"
	EstadoSinVerificar Estado = "Sin Verificar"
	EstadoError        Estado = "Error"
)

// RespuestaSAT campos crudos de ConsultaResult.
type RespuestaSAT struct {
	CodigoEstatus      string
	Estado             string
	EsCancelable       string
	EstatusCancelacion string
	ValidacionEFOS     string
}

// AuthorityStatus resultado de la verificación ante el SAT.
//
// Invariante: PermitirGuardar es true solo si EsValida, o si la consulta no pudo
// completarse (Sin Verificar). Un negativo confirmado siempre bloquea.
type AuthorityStatus struct {
	Estado             Estado    `json:"estado"`
	EsValida           bool      `json:"esValida"`
	EsCancelada        bool      `json:"esCancelada"`
	NoEncontrada       bool      `json:"noEncontrada"`
	PermitirGuardar    bool      `json:"permitirGuardar"`
	Mensaje            string    `json:"mensaje"`
	CodigoEstatus      string    `json:"codigoEstatus,omitempty"`
	EsCancelable       string    `json:"esCancelable,omitempty"`
	EstatusCancelacion string    `json:"estatusCancelacion,omitempty"`
	ValidacionEFOS     string    `json:"validacionEFOS,omitempty"`
	FromCache          bool      `json:"fromCache"`
	ConsultadoEn       time.Time `json:"consultadoEn"`
}

// StatusFromRespuesta traduce la respuesta cruda del SAT al estado del dominio.
// Una cancelación reportada en EstatusCancelacion prevalece sobre Estado.
func StatusFromRespuesta(r RespuestaSAT, now time.Time) AuthorityStatus {
	st := AuthorityStatus{
		CodigoEstatus:      strings.TrimSpace(r.CodigoEstatus),
		EsCancelable:       strings.TrimSpace(r.EsCancelable),
		EstatusCancelacion: strings.TrimSpace(r.EstatusCancelacion),
		ValidacionEFOS:     strings.TrimSpace(r.ValidacionEFOS),
		ConsultadoEn:       now,
	}
	estado := strings.TrimSpace(r.Estado)

	switch {
	case strings.EqualFold(estado, sat.EstadoCancelado) ||
		strings.HasPrefix(strings.ToLower(st.EstatusCancelacion), "cancelado"):
		st.Estado = EstadoCancelado
		st.EsCancelada = true
		st.Mensaje = "El CFDI está cancelado ante el SAT; no se puede registrar"
		if st.EstatusCancelacion != "" {
			st.Mensaje += " (" + st.EstatusCancelacion + ")"
		}

	case strings.EqualFold(estado, sat.EstadoVigente):
		st.Estado = EstadoVigente
		st.EsValida = true
		st.PermitirGuardar = true
		st.Mensaje = "CFDI vigente ante el SAT"
		if st.EstatusCancelacion != "" {
			st.Mensaje += " (cancelación: " + st.EstatusCancelacion + ")"
		}

	case strings.EqualFold(estado, sat.EstadoNoEncontrado) ||
		strings.Contains(st.CodigoEstatus, sat.CodigoNoEncontrado) ||
		strings.Contains(st.CodigoEstatus, sat.CodigoExpresionInvalida):
		st.Estado = EstadoNoEncontrado
		st.NoEncontrada = true
		st.Mensaje = "El CFDI no se encontró en el SAT; verifique UUID, RFCs y total"

	default:
		st.Estado = EstadoError
		st.Mensaje = fmt.Sprintf("Respuesta del SAT no reconocida: Estado=%q CodigoEstatus=%q", estado, st.CodigoEstatus)
	}
	return st
}

// NewSinVerificar estado para consultas que no pudieron completarse (red, timeout).
// Permite guardar: la falta de conectividad no debe bloquear el trabajo.
func NewSinVerificar(motivo string, now time.Time) AuthorityStatus {
	return AuthorityStatus{
		Estado:          EstadoSinVerificar,
		PermitirGuardar: true,
		Mensaje:         fmt.Sprintf("No fue posible verificar con el SAT (%s); se permite guardar, verifique más tarde", motivo),
		ConsultadoEn:    now,
	}
}

// NewErrorStatus estado para respuestas del SAT que no se pueden interpretar.
func NewErrorStatus(motivo string, now time.Time) AuthorityStatus {
	return AuthorityStatus{
		Estado:       EstadoError,
		Mensaje:      "Error al interpretar la respuesta del SAT: " + motivo,
		ConsultadoEn: now,
	}
}

// Cacheable solo los veredictos definitivos del SAT se guardan en caché.
func (s AuthorityStatus) Cacheable() bool {
	switch s.Estado {
	case EstadoVigente, EstadoCancelado, EstadoNoEncontrado:
		return true
	default:
		return false
	}
}
