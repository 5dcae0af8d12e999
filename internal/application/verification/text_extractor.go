package verification

import (
	"context"
	"strings"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// DefaultMinTextLength longitud mínima (sin espacios alrededor) para aceptar la capa de
// texto de un PDF sin recurrir a OCR.
const DefaultMinTextLength = 200

// MetodoExtraccion estrategia que produjo el texto.
type MetodoExtraccion string

const (
	MetodoPDFTexto MetodoExtraccion = "pdf-texto"
	MetodoOCR      MetodoExtraccion = "ocr"
	MetodoNinguno  MetodoExtraccion = "ninguno"
)

// Extraction texto obtenido de un documento.
type Extraction struct {
	Text         string           `json:"-"`
	Metodo       MetodoExtraccion `json:"metodo"`
	Paginas      int              `json:"paginas"`
	Advertencias []string         `json:"advertencias,omitempty"`
}

// TextExtractor obtiene texto de un documento con dos estrategias en cascada: capa de
// texto del PDF y OCR. Nunca devuelve error; si ambas fallan el texto queda vacío.
type TextExtractor struct {
	direct  ports.TextSource
	ocr     ports.TextSource
	minLen  int
	log     *logger.Logger
	metrics ports.MetricsRecorder
}

// NewTextExtractor direct u ocr pueden ser nil para deshabilitar esa estrategia.
func NewTextExtractor(direct, ocr ports.TextSource, minTextLength int, log *logger.Logger, metrics ports.MetricsRecorder) *TextExtractor {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &TextExtractor{
		direct:  direct,
		ocr:     ocr,
		minLen:  minTextLength,
		log:     log.Component("extractor"),
		metrics: metrics,
	}
}

// Extract intenta primero la capa de texto (solo PDFs) y recurre a OCR si el texto es
// insuficiente. Se devuelve el texto más largo de los obtenidos.
func (e *TextExtractor) Extract(ctx context.Context, doc []byte) Extraction {
	out := Extraction{Metodo: MetodoNinguno}
	if len(doc) == 0 {
		out.Advertencias = append(out.Advertencias, "documento vacío")
		e.finish(out)
		return out
	}

	if ports.IsPDF(doc) && e.direct != nil {
		res, err := e.direct.ExtractText(ctx, doc)
		if err != nil {
			out.Advertencias = append(out.Advertencias, "capa de texto: "+err.Error())
		} else {
			out.Text = strings.TrimSpace(res.Text)
			out.Paginas = res.Paginas
			if out.Text != "" {
				out.Metodo = MetodoPDFTexto
			}
			if len(out.Text) >= e.minLen {
				e.finish(out)
				return out
			}
		}
	}

	if e.ocr == nil {
		out.Advertencias = append(out.Advertencias, "OCR no configurado")
		e.finish(out)
		return out
	}
	res, err := e.ocr.ExtractText(ctx, doc)
	if err != nil {
		out.Advertencias = append(out.Advertencias, "ocr: "+err.Error())
		e.finish(out)
		return out
	}
	if text := strings.TrimSpace(res.Text); len(text) > len(out.Text) {
		out.Text = text
		out.Metodo = MetodoOCR
		if res.Paginas > 0 {
			out.Paginas = res.Paginas
		}
	}
	e.finish(out)
	return out
}

func (e *TextExtractor) finish(out Extraction) {
	e.metrics.ObserveExtraction(string(out.Metodo), len(out.Text))
	e.log.Debug().
		Str("metodo", string(out.Metodo)).
		Int("caracteres", len(out.Text)).
		Int("paginas", out.Paginas).
		Strs("advertencias", out.Advertencias).
		Msg("extracción de texto")
}
