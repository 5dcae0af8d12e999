package ports

import (
	"bytes"
	"context"
)

// TextoExtraido resultado de una fuente de texto.
type TextoExtraido struct {
	Text    string
	Paginas int
}

// TextSource puerto de salida para obtener texto de un documento (capa de texto del
// PDF u OCR). Las implementaciones hacen un único intento; el contexto acota la duración.
type TextSource interface {
	ExtractText(ctx context.Context, doc []byte) (TextoExtraido, error)
}

// IsPDF indica si el buffer es un PDF (%PDF- en el primer KB).
func IsPDF(doc []byte) bool {
	head := doc
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}
