package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/cache"
)

// Requiere un Redis real: REDIS_TEST_ADDR=localhost:6379 go test ./internal/infrastructure/cache/...
func TestRedisStatusCache_Integracion(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR no definido")
	}
	ctx := context.Background()

	c, err := cache.NewRedisStatusCache(ctx, cache.RedisConfig{Addr: addr, DB: 15}, time.Second)
	require.NoError(t, err)
	defer c.Close()
	_, _ = c.Clear(ctx)

	_, ok, err := c.Get(ctx, "AAA010101AAA|XAXX010101000|10.00|X")
	require.NoError(t, err)
	assert.False(t, ok)

	st := cfdi.StatusFromRespuesta(cfdi.RespuestaSAT{Estado: "Cancelado"}, time.Now().UTC())
	require.NoError(t, c.Set(ctx, "AAA010101AAA|XAXX010101000|10.00|X", st))

	got, ok, err := c.Get(ctx, "AAA010101AAA|XAXX010101000|10.00|X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cfdi.EstadoCancelado, got.Estado)
	assert.False(t, got.PermitirGuardar)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Set(ctx, "k", st))
	time.Sleep(1100 * time.Millisecond)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "Redis expira la clave con el TTL")
}

func TestNewRedisStatusCache_SinServidor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cache.NewRedisStatusCache(ctx, cache.RedisConfig{Addr: "127.0.0.1:1"}, time.Minute)
	assert.Error(t, err)
}
