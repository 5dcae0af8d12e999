package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
)

// PDFTextSource lee la capa de texto embebida de un PDF (sin OCR).
type PDFTextSource struct{}

var _ ports.TextSource = PDFTextSource{}

// NewPDFTextSource construye la fuente de texto directo.
func NewPDFTextSource() PDFTextSource { return PDFTextSource{} }

// ExtractText devuelve el texto plano de todas las páginas. Un PDF escaneado devuelve
// texto vacío sin error.
func (PDFTextSource) ExtractText(ctx context.Context, doc []byte) (res ports.TextoExtraido, err error) {
	if err := ctx.Err(); err != nil {
		return ports.TextoExtraido{}, err
	}
	// la librería entra en pánico con algunos PDFs mal formados
	defer func() {
		if r := recover(); r != nil {
			res, err = ports.TextoExtraido{}, fmt.Errorf("pdf: documento ilegible: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("pdf: abrir documento: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("pdf: extraer texto: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil && !errors.Is(err, io.EOF) {
		return ports.TextoExtraido{}, fmt.Errorf("pdf: leer texto: %w", err)
	}
	return ports.TextoExtraido{Text: buf.String(), Paginas: reader.NumPage()}, nil
}
