package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// Config binarios y parámetros del OCR.
type Config struct {
	Tesseract string // nombre o ruta; vacío -> "tesseract"
	Pdftoppm  string // nombre o ruta; vacío -> "pdftoppm"
	Lang      string // vacío -> "spa"
	DPI       int    // rasterización de PDFs; <= 0 -> 300
	MaxPages  int    // páginas de un PDF que se procesan; <= 0 -> 3
	Workers   int    // tesseract en paralelo; <= 0 -> 2
}

func (c Config) withDefaults() Config {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Lang == "" {
		c.Lang = "spa"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 3
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	return c
}

// TesseractSource OCR con tesseract. Los PDFs se rasterizan antes con pdftoppm.
type TesseractSource struct {
	cfg    Config
	runner Runner
	log    *logger.Logger
}

var _ ports.TextSource = (*TesseractSource)(nil)

// NewTesseractSource runner nil usa ExecRunner.
func NewTesseractSource(cfg Config, runner Runner, log *logger.Logger) *TesseractSource {
	if runner == nil {
		runner = NewExecRunner(log)
	}
	return &TesseractSource{cfg: cfg.withDefaults(), runner: runner, log: log.Component("ocr")}
}

// ExtractText escribe el documento en un directorio temporal y ejecuta el OCR.
// El directorio se elimina al terminar.
func (s *TesseractSource) ExtractText(ctx context.Context, doc []byte) (ports.TextoExtraido, error) {
	tmpDir, err := os.MkdirTemp("", "cfdi-ocr-*")
	if err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("ocr: directorio temporal: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			s.log.Warn().Err(err).Str("dir", tmpDir).Msg("no se pudo borrar el directorio temporal")
		}
	}()

	if ports.IsPDF(doc) {
		return s.pdfToOCR(ctx, tmpDir, doc)
	}

	path := filepath.Join(tmpDir, "documento"+imageExt(doc))
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("ocr: escribir imagen: %w", err)
	}
	text, err := s.tesseract(ctx, path)
	if err != nil {
		return ports.TextoExtraido{}, err
	}
	return ports.TextoExtraido{Text: text, Paginas: 1}, nil
}

// pdfToOCR pdftoppm -r DPI -png -f 1 -l N <in.pdf> <dir/page> y tesseract por página.
func (s *TesseractSource) pdfToOCR(ctx context.Context, dir string, doc []byte) (ports.TextoExtraido, error) {
	in := filepath.Join(dir, "documento.pdf")
	if err := os.WriteFile(in, doc, 0o600); err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("ocr: escribir pdf: %w", err)
	}

	last := s.cfg.MaxPages
	if n, err := PageCount(doc); err != nil {
		s.log.Debug().Err(err).Msg("pdfcpu no pudo contar páginas; se usa el máximo configurado")
	} else if n < last {
		last = n
	}

	prefix := filepath.Join(dir, "page")
	_, errb, err := s.runner.Run(ctx, s.cfg.Pdftoppm,
		"-r", strconv.Itoa(s.cfg.DPI), "-png", "-f", "1", "-l", strconv.Itoa(last), in, prefix)
	if err != nil {
		return ports.TextoExtraido{}, fmt.Errorf("ocr: pdftoppm: %w (%s)", err, strings.TrimSpace(string(errb)))
	}

	// prefix-1.png, prefix-2.png ... (pdftoppm rellena con ceros según el total)
	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(images)
	if len(images) > s.cfg.MaxPages {
		images = images[:s.cfg.MaxPages]
	}
	if len(images) == 0 {
		return ports.TextoExtraido{}, errors.New("ocr: pdftoppm no generó imágenes")
	}

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, img := range images {
		g.Go(func() error {
			txt, err := s.tesseract(gctx, img)
			if err != nil {
				return fmt.Errorf("página %d: %w", i+1, err)
			}
			texts[i] = txt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.TextoExtraido{}, err
	}
	return ports.TextoExtraido{Text: strings.Join(texts, "\n\f\n"), Paginas: len(images)}, nil
}

// tesseract <img> stdout -l <lang>
func (s *TesseractSource) tesseract(ctx context.Context, path string) (string, error) {
	out, errb, err := s.runner.Run(ctx, s.cfg.Tesseract, path, "stdout", "-l", s.cfg.Lang)
	if err != nil {
		return "", fmt.Errorf("ocr: tesseract: %w (%s)", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

// PageCount número de páginas según pdfcpu, con validación relajada.
func PageCount(doc []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(doc), conf)
}

func imageExt(doc []byte) string {
	switch http.DetectContentType(doc) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	default:
		return ".tif"
	}
}
