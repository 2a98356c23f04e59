package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.False(t, cfg.Server.Production)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doubledeck.hcl")
	content := `
server {
  port      = 4500
  log_level = "debug"
}

timing {
  trick_settle_ms = 50
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4500, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 50, cfg.Timing.TrickSettleMs)
	assert.Equal(t, 1500, cfg.Timing.TrickClearMs, "unset fields keep their defaults")
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
}

func TestLoadConfigPortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9001")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
		assert.Error(t, err)
	})
}

func TestLoadConfigBadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestListenAddress(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":3001", cfg.ListenAddress())

	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 8080
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddress())
}

func TestPacing(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Pacing()
	assert.Equal(t, 500*time.Millisecond, p.TrickSettle)
	assert.Equal(t, 1500*time.Millisecond, p.TrickClear)
	assert.Equal(t, 2*time.Second, p.RoundEnd)
	assert.Equal(t, 5*time.Second, p.DisconnectGrace)
	assert.Equal(t, 300*time.Millisecond, p.TurnCheck)
}
