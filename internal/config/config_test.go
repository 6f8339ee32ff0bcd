package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula/internal/config"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "reticula.yaml", `
log_level: debug
outgroup: Danio
workers: 4
conflict_threshold: 0.75
cache:
  backend: redis
  addr: redis:6379
  db: 2
  ttl: 10m
http:
  port: 9090
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Danio", cfg.Outgroup)
	assert.Equal(t, 4, cfg.Workers)
	assert.InDelta(t, 0.75, cfg.ConflictThreshold, 1e-12)
	assert.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
	assert.Equal(t, 2, cfg.Cache.DB)
	assert.Equal(t, "reticula:result:", cfg.Cache.Prefix, "unset fields keep defaults")
	assert.Equal(t, 9090, cfg.HTTP.Port)

	ttl, err := cfg.Cache.TTLDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "reticula.json", `{"outgroup":"A","cache":{"backend":"memory"}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.Outgroup)
	assert.Equal(t, config.BackendMemory, cfg.Cache.Backend)
	assert.InDelta(t, 1.0, cfg.ConflictThreshold, 1e-12)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "log_level: loud\n"},
		{"negative workers", "workers: -1\n"},
		{"negative threshold", "conflict_threshold: -0.5\n"},
		{"unknown backend", "cache:\n  backend: memcached\n"},
		{"bad ttl", "cache:\n  ttl: soon\n"},
		{"negative ttl", "cache:\n  ttl: -1s\n"},
		{"bad port", "http:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, "reticula.yaml", tt.content))
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := config.Load(write(t, "reticula.yaml", "workers: [1, 2\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
}
