package ports

import (
	"context"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// AcuseData datos del acuse de verificación.
type AcuseData struct {
	Consulta cfdi.ConsultaSAT
	Status   cfdi.AuthorityStatus
}

// AcusePDFGenerator genera el PDF del acuse de verificación.
type AcusePDFGenerator interface {
	Generate(ctx context.Context, data AcuseData) ([]byte, error)
}
