package ports

import (
	"context"
	"time"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// RegistroConsulta una consulta al SAT ya resuelta.
type RegistroConsulta struct {
	Consulta cfdi.ConsultaSAT
	Status   cfdi.AuthorityStatus
	Duracion time.Duration
}

// ConsultaAuditor bitácora de consultas al SAT. Es de mejor esfuerzo: un error se
// registra en log y nunca cambia el resultado de la validación.
type ConsultaAuditor interface {
	Record(ctx context.Context, r RegistroConsulta) error
}
