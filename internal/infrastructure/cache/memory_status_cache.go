package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// DefaultTTL vigencia de un veredicto del SAT en caché.
const DefaultTTL = 5 * time.Minute

// statusEntry veredicto guardado y momento en que se guardó.
type statusEntry struct {
	status   cfdi.AuthorityStatus
	storedAt time.Time
}

// MemoryStatusCache caché en memoria del proceso. La expiración se revisa al leer; no
// hay goroutine de limpieza. El único borrado explícito es Clear.
type MemoryStatusCache struct {
	mu      sync.RWMutex
	entries map[string]statusEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ ports.StatusCache = (*MemoryStatusCache)(nil)

// MemoryOption opción funcional de la caché en memoria.
type MemoryOption func(*MemoryStatusCache)

// WithMemoryClock reemplaza el reloj (pruebas de expiración).
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryStatusCache) { c.now = now }
}

// NewMemoryStatusCache ttl <= 0 usa DefaultTTL.
func NewMemoryStatusCache(ttl time.Duration, opts ...MemoryOption) *MemoryStatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &MemoryStatusCache{
		entries: make(map[string]statusEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get devuelve el veredicto si existe y no ha vencido. Una entrada vencida se elimina
// en la misma sección crítica en que se revisa.
func (c *MemoryStatusCache) Get(_ context.Context, key string) (cfdi.AuthorityStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cfdi.AuthorityStatus{}, false, nil
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return cfdi.AuthorityStatus{}, false, nil
	}
	return e.status, true, nil
}

// Set guarda el veredicto; el TTL corre desde este momento.
func (c *MemoryStatusCache) Set(_ context.Context, key string, status cfdi.AuthorityStatus) error {
	c.mu.Lock()
	c.entries[key] = statusEntry{status: status, storedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Clear vacía la caché.
func (c *MemoryStatusCache) Clear(_ context.Context) (int, error) {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]statusEntry)
	c.mu.Unlock()
	return n, nil
}

// Len número de entradas, incluidas las vencidas aún no leídas.
func (c *MemoryStatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
