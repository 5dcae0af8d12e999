package ocr_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/ocr"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// stubRunner simula pdftoppm (crea N páginas vacías) y tesseract (devuelve el nombre
// de la imagen).
type stubRunner struct {
	mu       sync.Mutex
	pages    int
	failTess bool
	calls    [][]string
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= r.pages; i++ {
			if err := os.WriteFile(prefix+"-"+string(rune('0'+i))+".png", nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if r.failTess {
			return nil, []byte("Error opening data file spa.traineddata"), errors.New("exit status 1")
		}
		return []byte("texto de " + filepath.Base(args[0])), nil, nil
	}
	return nil, nil, errors.New("comando inesperado " + name)
}

func (r *stubRunner) commands(name string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]string
	for _, c := range r.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

var fakePDF = []byte("%PDF-1.4\nno es un pdf completo")

func TestTesseractSource_PDFPorPaginas(t *testing.T) {
	runner := &stubRunner{pages: 2}
	src := ocr.NewTesseractSource(ocr.Config{MaxPages: 3}, runner, logger.Nop())

	res, err := src.ExtractText(context.Background(), fakePDF)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Paginas)
	assert.Equal(t, "texto de page-1.png\n\f\ntexto de page-2.png", res.Text)

	ppm := runner.commands("pdftoppm")
	require.Len(t, ppm, 1)
	assert.Equal(t, []string{"pdftoppm", "-r", "300", "-png", "-f", "1", "-l", "3"}, ppm[0][:8])

	tess := runner.commands("tesseract")
	require.Len(t, tess, 2)
	assert.Equal(t, []string{"stdout", "-l", "spa"}, tess[0][2:])
}

func TestTesseractSource_LimitaPaginas(t *testing.T) {
	runner := &stubRunner{pages: 5}
	src := ocr.NewTesseractSource(ocr.Config{MaxPages: 2, Workers: 4}, runner, logger.Nop())

	res, err := src.ExtractText(context.Background(), fakePDF)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Paginas)
	assert.Len(t, runner.commands("tesseract"), 2)
}

func TestTesseractSource_Imagen(t *testing.T) {
	runner := &stubRunner{}
	src := ocr.NewTesseractSource(ocr.Config{Lang: "spa+eng"}, runner, logger.Nop())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	res, err := src.ExtractText(context.Background(), png)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Paginas)
	assert.Equal(t, "texto de documento.png", res.Text)
	assert.Empty(t, runner.commands("pdftoppm"))
	assert.Equal(t, "spa+eng", runner.commands("tesseract")[0][4])
}

func TestTesseractSource_FallaTesseract(t *testing.T) {
	runner := &stubRunner{pages: 1, failTess: true}
	src := ocr.NewTesseractSource(ocr.Config{}, runner, logger.Nop())

	_, err := src.ExtractText(context.Background(), fakePDF)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "traineddata"))
}

func TestTesseractSource_SinImagenes(t *testing.T) {
	src := ocr.NewTesseractSource(ocr.Config{}, &stubRunner{pages: 0}, logger.Nop())

	_, err := src.ExtractText(context.Background(), fakePDF)
	assert.Error(t, err)
}

func TestPDFTextSource_DocumentoInvalido(t *testing.T) {
	_, err := ocr.NewPDFTextSource().ExtractText(context.Background(), []byte("%PDF-1.4 basura"))
	assert.Error(t, err)
}

func TestPDFTextSource_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ocr.NewPDFTextSource().ExtractText(ctx, fakePDF)
	assert.ErrorIs(t, err, context.Canceled)
}
