package ports

import (
	"context"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// SATConsulta puerto de salida hacia el servicio Consulta del SAT.
//
// Errores esperados:
//   - domain.ErrAuthorityUnavailable: red, timeout, contexto vencido, HTTP 502-504.
//   - domain.ErrAuthorityProtocol: SOAP Fault, XML mal formado, estructura inesperada.
type SATConsulta interface {
	// Consultar envía la expresión impresa (?re=..&rr=..&tt=..&id=..) y devuelve los
	// campos crudos de ConsultaResult.
	Consultar(ctx context.Context, expresion string) (cfdi.RespuestaSAT, error)
}
