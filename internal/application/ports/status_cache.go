package ports

import (
	"context"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// StatusCache caché de veredictos del SAT con expiración por TTL. Una entrada vencida
// se comporta como ausente. Los errores del backend se tratan como fallo de caché.
type StatusCache interface {
	Get(ctx context.Context, key string) (cfdi.AuthorityStatus, bool, error)
	Set(ctx context.Context, key string, status cfdi.AuthorityStatus) error
	// Clear elimina todas las entradas y devuelve cuántas había.
	Clear(ctx context.Context) (int, error)
}
