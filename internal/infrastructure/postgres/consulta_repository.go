package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
)

//go:embed schema.sql
var schemaSQL string

// Querier lo que necesita el repositorio de un pool o una tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ ports.ConsultaAuditor = (*ConsultaRepo)(nil)

// ConsultaRepo bitácora de consultas al SAT en cfdi_consultas_sat.
type ConsultaRepo struct {
	q Querier
}

// NewConsultaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConsultaRepository(q Querier) *ConsultaRepo {
	return &ConsultaRepo{q: q}
}

// EnsureSchema crea la tabla y los índices si no existen.
func (r *ConsultaRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("crear esquema cfdi_consultas_sat: %w", err)
	}
	return nil
}

// Record inserta una fila por resultado de la autoridad.
func (r *ConsultaRepo) Record(ctx context.Context, reg ports.RegistroConsulta) error {
	c, st := reg.Consulta, reg.Status
	consultado := st.ConsultadoEn
	if consultado.IsZero() {
		consultado = time.Now()
	}
	query := `
		INSERT INTO cfdi_consultas_sat (id, uuid, rfc_emisor, rfc_receptor, total, estado, codigo_estatus,
		                                estatus_cancelacion, mensaje, from_cache, duracion_ms, consultado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		uuid.NewString(), c.UUID, c.RFCEmisor, c.RFCReceptor, c.Total,
		string(st.Estado), nullIfEmpty(st.CodigoEstatus), nullIfEmpty(st.EstatusCancelacion),
		st.Mensaje, st.FromCache, reg.Duracion.Milliseconds(), consultado,
	)
	if err != nil {
		return fmt.Errorf("insert consulta sat: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
