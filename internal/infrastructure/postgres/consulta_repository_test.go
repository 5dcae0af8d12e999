package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/postgres"
)

type execCall struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	calls []execCall
	err   error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func registro(t *testing.T) ports.RegistroConsulta {
	t.Helper()
	c, err := cfdi.NewConsultaSAT("AAA010101AAA", "XAXX010101000", "1,500.00", "6F8A2D3E-1B4C-4D5E-9F60-718293A4B5C6")
	require.NoError(t, err)
	st := cfdi.StatusFromRespuesta(cfdi.RespuestaSAT{
		CodigoEstatus: "S - Comprobante obtenido satisfactoriamente.",
		Estado:        "Vigente",
	}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return ports.RegistroConsulta{Consulta: c, Status: st, Duracion: 420 * time.Millisecond}
}

func TestConsultaRepo_Record_InsertaFila(t *testing.T) {
	q := &fakeQuerier{}
	repo := postgres.NewConsultaRepository(q)

	require.NoError(t, repo.Record(context.Background(), registro(t)))

	require.Len(t, q.calls, 1)
	call := q.calls[0]
	assert.Contains(t, call.sql, "INSERT INTO cfdi_consultas_sat")
	require.Len(t, call.args, 12)
	_, err := uuid.Parse(call.args[0].(string))
	assert.NoError(t, err)
	assert.Equal(t, "6F8A2D3E-1B4C-4D5E-9F60-718293A4B5C6", call.args[1])
	assert.True(t, decimal.RequireFromString("1500").Equal(call.args[4].(decimal.Decimal)))
	assert.Equal(t, "Vigente", call.args[5])
	assert.Nil(t, call.args[7], "estatus de cancelación vacío se guarda como NULL")
	assert.Equal(t, int64(420), call.args[10])
}

func TestConsultaRepo_Record_PropagaError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("conexión cerrada")}
	err := postgres.NewConsultaRepository(q).Record(context.Background(), registro(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert consulta sat")
}

func TestConsultaRepo_EnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	require.NoError(t, postgres.NewConsultaRepository(q).EnsureSchema(context.Background()))
	require.Len(t, q.calls, 1)
	assert.True(t, strings.Contains(q.calls[0].sql, "CREATE TABLE IF NOT EXISTS cfdi_consultas_sat"))
}
