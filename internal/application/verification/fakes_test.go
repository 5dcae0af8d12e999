package verification_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

const (
	testUUID      = "6F8A2D3E-1B4C-4D5E-9F60-718293A4B5C6"
	testRFCEmisor = "AAA010101AAA"
	testRFCOtro   = "BBB020202BB2"
)

var respuestaVigente = cfdi.RespuestaSAT{
	CodigoEstatus: "S - Comprobante obtenido satisfactoriamente.",
	Estado:        "Vigente",
	EsCancelable:  "Cancelable sin aceptación",
}

// ── fuentes de texto ──

type fakeSource struct {
	text  string
	pages int
	err   error
	calls int
}

func (f *fakeSource) ExtractText(_ context.Context, _ []byte) (ports.TextoExtraido, error) {
	f.calls++
	if f.err != nil {
		return ports.TextoExtraido{}, f.err
	}
	return ports.TextoExtraido{Text: f.text, Paginas: f.pages}, nil
}

// ── SAT ──

type fakeSAT struct {
	mu          sync.Mutex
	resp        cfdi.RespuestaSAT
	err         error
	block       bool
	calls       int
	expresiones []string
}

func (f *fakeSAT) Consultar(ctx context.Context, expresion string) (cfdi.RespuestaSAT, error) {
	f.mu.Lock()
	f.calls++
	f.expresiones = append(f.expresiones, expresion)
	block, resp, err := f.block, f.resp, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: %w", domain.ErrAuthorityUnavailable, ctx.Err())
	}
	return resp, err
}

func (f *fakeSAT) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ── caché ──

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cfdi.AuthorityStatus
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]cfdi.AuthorityStatus{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (cfdi.AuthorityStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return cfdi.AuthorityStatus{}, false, c.getErr
	}
	st, ok := c.entries[key]
	return st, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, st cfdi.AuthorityStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = st
	return nil
}

func (c *fakeCache) Clear(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = map[string]cfdi.AuthorityStatus{}
	return n, nil
}

func (c *fakeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ── bitácora ──

type fakeAuditor struct {
	mu        sync.Mutex
	registros []ports.RegistroConsulta
	err       error
}

func (a *fakeAuditor) Record(_ context.Context, r ports.RegistroConsulta) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registros = append(a.registros, r)
	return a.err
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}
