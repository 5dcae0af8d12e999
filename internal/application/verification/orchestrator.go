package verification

import (
	"context"
	"errors"

	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// Etapa etapa alcanzada por un flujo de validación.
type Etapa string

const (
	EtapaExtrayendo  Etapa = "extrayendo"
	EtapaAnalizando  Etapa = "analizando"
	EtapaConciliando Etapa = "conciliando"
	EtapaAutorizando Etapa = "autorizando"
	EtapaTerminado   Etapa = "terminado"
)

// Metodo flujo que produjo el resultado.
type Metodo string

const (
	MetodoFlujoOCR       Metodo = "ocr"
	MetodoFlujoQR        Metodo = "qr"
	MetodoFlujoAutopilot Metodo = "autopilot"
	MetodoFlujoSAT       Metodo = "sat"
)

// ResultadoValidacion resultado de un flujo. Un flujo que no puede continuar devuelve
// Completo=false con los campos faltantes y la etapa donde se detuvo.
type ResultadoValidacion struct {
	Etapa           Etapa                      `json:"etapa"`
	Completo        bool                       `json:"completo"`
	CamposFaltantes []string                   `json:"camposFaltantes,omitempty"`
	Metodo          Metodo                     `json:"metodo"`
	Datos           cfdi.FiscalTuple           `json:"datos"`
	Extraccion      *Extraction                `json:"extraccion,omitempty"`
	Reconciliacion  *cfdi.ReconciliationResult `json:"reconciliacion,omitempty"`
	Decision        *cfdi.AuthorityStatus      `json:"decision,omitempty"`
	Mensaje         string                     `json:"mensaje"`
}

// Orchestrator encadena extracción, análisis, conciliación y consulta al SAT.
// Cada flujo es secuencial y sin reintentos.
type Orchestrator struct {
	extractor *TextExtractor
	parser    *cfdi.Parser
	authority *AuthorityValidator
	log       *logger.Logger
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(extractor *TextExtractor, parser *cfdi.Parser, authority *AuthorityValidator, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		parser:    parser,
		authority: authority,
		log:       log.Component("orquestador"),
	}
}

// ValidarDocumentoOCR extrae la tupla de un documento escaneado. Si se proporciona un
// registro estructurado se concilia en modo tolerante y sus campos prevalecen para la
// consulta al SAT.
func (o *Orchestrator) ValidarDocumentoOCR(ctx context.Context, doc []byte, registro *cfdi.FiscalTuple) ResultadoValidacion {
	return o.validarDocumento(ctx, doc, registro, MetodoFlujoOCR)
}

// AutopilotPDF extracción, análisis y consulta al SAT sin registro de referencia.
func (o *Orchestrator) AutopilotPDF(ctx context.Context, pdf []byte) ResultadoValidacion {
	return o.validarDocumento(ctx, pdf, nil, MetodoFlujoAutopilot)
}

// CruzarQR concilia en modo estricto el QR contra el registro. No consulta al SAT.
func (o *Orchestrator) CruzarQR(qr string, registro cfdi.FiscalTuple) ResultadoValidacion {
	res := ResultadoValidacion{Etapa: EtapaAnalizando, Metodo: MetodoFlujoQR}

	datos := cfdi.ParseQR(qr)
	res.Datos = datos
	faltantes := datos.MissingFields()
	if len(faltantes) == 4 {
		res.CamposFaltantes = faltantes
		res.Mensaje = "El QR no contiene una expresión de verificación del SAT reconocible"
		return res
	}

	res.Etapa = EtapaConciliando
	rec := cfdi.Reconcile(registro, datos, cfdi.ModoEstricto)
	res.Reconciliacion = &rec

	res.Etapa = EtapaTerminado
	res.CamposFaltantes = faltantes
	res.Completo = len(faltantes) == 0
	res.Mensaje = rec.Mensaje

	o.log.Debug().Bool("coinciden", rec.Coinciden).Int("diferencias", len(rec.Diferencias)).Msg("cruce QR")
	return res
}

// ValidarSAT consulta directamente al SAT. Es el único flujo donde una entrada inválida
// es un error.
func (o *Orchestrator) ValidarSAT(ctx context.Context, tuple cfdi.FiscalTuple) (ResultadoValidacion, error) {
	c, err := cfdi.ConsultaFromTuple(tuple)
	if err != nil {
		return ResultadoValidacion{}, err
	}
	st := o.authority.ValidateConsulta(ctx, c)
	return ResultadoValidacion{
		Etapa:    EtapaTerminado,
		Completo: true,
		Metodo:   MetodoFlujoSAT,
		Datos:    c.Tuple(),
		Decision: &st,
		Mensaje:  st.Mensaje,
	}, nil
}

// LimpiarCache reinicia la caché de estados del SAT.
func (o *Orchestrator) LimpiarCache(ctx context.Context) (int, error) {
	return o.authority.ClearCache(ctx)
}

func (o *Orchestrator) validarDocumento(ctx context.Context, doc []byte, registro *cfdi.FiscalTuple, metodo Metodo) ResultadoValidacion {
	res := ResultadoValidacion{Etapa: EtapaExtrayendo, Metodo: metodo}

	// ── Extrayendo ──
	ext := o.extractor.Extract(ctx, doc)
	res.Extraccion = &ext
	if ext.Text == "" {
		res.CamposFaltantes = cfdi.FiscalTuple{}.MissingFields()
		res.Mensaje = "No se pudo obtener texto del documento"
		return res
	}

	// ── Analizando ──
	res.Etapa = EtapaAnalizando
	datos := o.parser.Parse(ext.Text)
	res.Datos = datos

	// ── Conciliando ──
	if registro != nil {
		res.Etapa = EtapaConciliando
		rec := cfdi.Reconcile(*registro, datos, cfdi.ModoTolerante)
		res.Reconciliacion = &rec
		res.Datos = cfdi.Merge(*registro, datos)
	}

	if faltantes := res.Datos.MissingFields(); len(faltantes) > 0 {
		res.CamposFaltantes = faltantes
		res.Mensaje = "Faltan datos fiscales para consultar al SAT"
		o.log.Debug().Strs("faltantes", faltantes).Str("metodo", string(metodo)).Msg("tupla incompleta")
		return res
	}

	// ── Autorizando ──
	res.Etapa = EtapaAutorizando
	c, err := cfdi.ConsultaFromTuple(res.Datos)
	if err != nil {
		res.CamposFaltantes = invalidFields(err)
		res.Mensaje = "Datos fiscales inválidos para consultar al SAT: " + err.Error()
		return res
	}
	st := o.authority.ValidateConsulta(ctx, c)
	res.Decision = &st

	res.Etapa = EtapaTerminado
	res.Completo = true
	res.Mensaje = st.Mensaje
	return res
}

// invalidFields nombres de campo de los FieldError contenidos en err.
func invalidFields(err error) []string {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	var out []string
	for _, e := range errs {
		var fe *domain.FieldError
		if errors.As(e, &fe) {
			out = append(out, fe.Field)
		}
	}
	return out
}
