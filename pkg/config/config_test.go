package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.SAT.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.SAT.CacheTTL)
	assert.Zero(t, cfg.SAT.MaxRPS)
	assert.Equal(t, "spa", cfg.OCR.Lang)
	assert.Equal(t, 200, cfg.OCR.MinTextLength)
	assert.False(t, cfg.DB.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAT_TIMEOUT_SECONDS", "4")
	t.Setenv("SAT_MAX_RPS", "2.5")
	t.Setenv("SAT_CERTIFIER_RFCS", "SAT970701NN3, ,ABC010101AB1")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "p@ss/word")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.SAT.Timeout)
	assert.Equal(t, 2.5, cfg.SAT.MaxRPS)
	assert.Equal(t, []string{"SAT970701NN3", "ABC010101AB1"}, cfg.SAT.CertifierRFCs)
	assert.True(t, cfg.DB.Enabled())
	assert.Contains(t, cfg.DB.DSN(), "p%40ss%2Fword@db:5432")
}

func TestLoad_TimeoutInvalido(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAT_TIMEOUT_SECONDS", "0")

	_, err := config.Load()
	assert.Error(t, err)
}
