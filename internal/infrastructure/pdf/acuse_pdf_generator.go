// Package pdf genera el acuse de verificación de un CFDI: los datos consultados, el
// estado devuelto por el SAT y el QR a la página pública de verificación.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título                      │  Fecha de consulta    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPROBANTE: UUID / RFC emisor / RFC receptor / Total       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ESTADO SAT: Estado + código + cancelación + EFOS            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR verificación + URL + leyenda                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorOK      = &props.Color{Red: 0, Green: 120, Blue: 60}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
	colorWarn    = &props.Color{Red: 190, Green: 120, Blue: 0}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// AcusePDFGenerator implementa ports.AcusePDFGenerator con Maroto v2.
type AcusePDFGenerator struct{}

var _ ports.AcusePDFGenerator = (*AcusePDFGenerator)(nil)

// NewAcusePDFGenerator construye el generador.
func NewAcusePDFGenerator() *AcusePDFGenerator { return &AcusePDFGenerator{} }

// Generate genera el PDF y devuelve sus bytes.
func (g *AcusePDFGenerator) Generate(_ context.Context, data ports.AcuseData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Acuse de verificación CFDI", true).
		WithSubject(data.Consulta.UUID, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data.Status))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	for _, r := range comprobanteRows(data.Consulta) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, r := range estadoRows(data.Status) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range footerRows(data.Consulta) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar acuse: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título (izq) y fecha de consulta (der).
func headerRow(st cfdi.AuthorityStatus) core.Row {
	fecha := "-"
	if !st.ConsultadoEn.IsZero() {
		fecha = st.ConsultadoEn.Format("02/01/2006 15:04:05 MST")
	}
	return row.New(16).Add(
		col.New(8).Add(
			text.New("ACUSE DE VERIFICACIÓN DE CFDI", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Consulta al servicio de verificación del SAT", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Fecha de consulta", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(fecha, props.Text{Size: 8, Align: align.Right, Top: 7}),
		),
	)
}

// comprobanteRows: la tupla fiscal consultada.
func comprobanteRows(c cfdi.ConsultaSAT) []core.Row {
	rows := []core.Row{sectionTitle("DATOS DEL COMPROBANTE")}
	rows = append(rows,
		fieldRow("Folio fiscal (UUID):", c.UUID),
		fieldRow("RFC emisor:", c.RFCEmisor),
		fieldRow("RFC receptor:", c.RFCReceptor),
		fieldRow("Total:", "$"+formatMoney(sat.FormatTotal(c.Total))+" MXN"),
	)
	return rows
}

// estadoRows: veredicto del SAT con color según el estado.
func estadoRows(st cfdi.AuthorityStatus) []core.Row {
	rows := []core.Row{
		sectionTitle("ESTADO ANTE EL SAT"),
		row.New(9).Add(col.New(12).Add(
			text.New(strings.ToUpper(string(st.Estado)), props.Text{
				Style: fontstyle.Bold, Size: 14, Color: estadoColor(st), Top: 1,
			}),
		)),
	}
	rows = append(rows,
		fieldRow("Código de estatus:", nonEmpty(st.CodigoEstatus, "-")),
		fieldRow("Es cancelable:", nonEmpty(st.EsCancelable, "-")),
		fieldRow("Estatus de cancelación:", nonEmpty(st.EstatusCancelacion, "-")),
		fieldRow("Validación EFOS:", nonEmpty(st.ValidacionEFOS, "-")),
	)
	origen := "consulta directa"
	if st.FromCache {
		origen = "caché (consulta reciente)"
	}
	rows = append(rows, fieldRow("Origen:", origen))
	for _, chunk := range splitEvery(st.Mensaje, 110) {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 8, Color: colorGray, Top: 1}),
		)))
	}
	return rows
}

// footerRows: QR a la URL pública de verificación + leyenda.
func footerRows(c cfdi.ConsultaSAT) []core.Row {
	url := c.VerificationURL()
	rows := []core.Row{
		row.New(50).Add(
			col.New(4).Add(code.NewQr(url, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New("Escanea el código QR para consultar este\ncomprobante en el portal del SAT.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("Acuse de verificación", props.Text{
					Style: fontstyle.Bold, Size: 10, Top: 22, Left: 3, Color: colorPrimary,
				}),
			),
		),
	}
	for _, chunk := range splitEvery(url, 100) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5}),
		)))
	}
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Este acuse refleja la respuesta del SAT al momento de la consulta. "+
				"No sustituye la validación del sello digital ni del XML del comprobante.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

func sectionTitle(s string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(s, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
	))
}

func fieldRow(label, value string) core.Row {
	return row.New(6).Add(
		col.New(4).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
		col.New(8).Add(text.New(value, props.Text{Size: 8, Top: 1})),
	)
}

func estadoColor(st cfdi.AuthorityStatus) *props.Color {
	switch st.Estado {
	case cfdi.EstadoVigente:
		return colorOK
	case cfdi.EstadoSinVerificar:
		return colorWarn
	default:
		return colorAlert
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta comas de miles en un importe con 2 decimales.
// Ej: "1234.50" → "1,234.50", "1000000.00" → "1,000,000.00"
func formatMoney(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3+len(frac)+1)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	if frac != "" {
		buf = append(buf, '.')
		buf = append(buf, frac...)
	}
	return string(buf)
}

// splitEvery divide s en trozos de max n bytes sin partir runas.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		cut := n
		for cut > 0 && !utf8RuneStart(s[cut]) {
			cut--
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
