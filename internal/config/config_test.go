package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "APP_ENV", "PORT", "CORS_ORIGIN", "DATABASE_URL",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_ENABLED", "CACHE_TTL",
	"STORAGE_BACKEND", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "REQUEST_TIMEOUT",
	"S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PREFIX", "S3_ENDPOINT",
	"SWEEP_SCHEDULE", "SWEEP_GRACE", "SWEEP_ENABLED",
}

// clearEnv blanks every variable Load reads; empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "postgres://postgres:@localhost:5432/confessions?sslmode=disable", cfg.Postgres.DSN())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "8080"
requestTimeout: 5s
postgres:
  url: postgres://file@db/confessions
redis:
  enabled: false
  cacheTTL: 1m
storage:
  backend: s3
  s3:
    bucket: from-file
sweeper:
  schedule: "@every 30m"
`), 0644))

	clearEnv(t)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("S3_BUCKET", "from-env")
	t.Setenv("SWEEP_GRACE", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "postgres://file@db/confessions", cfg.Postgres.DSN())
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "from-env", cfg.Storage.S3.Bucket)
	assert.Equal(t, "audio", cfg.Storage.S3.Prefix)
	assert.Equal(t, "@every 30m", cfg.Sweeper.Schedule)
	assert.Equal(t, 2*time.Minute, cfg.Sweeper.Grace)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := map[string]string{
		"MAX_UPLOAD_BYTES": "lots",
		"REQUEST_TIMEOUT":  "soon",
		"REDIS_ENABLED":    "maybe",
		"REDIS_DB":         "zero",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero upload limit", func(c *Config) { c.Storage.MaxUploadBytes = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"empty upload dir", func(c *Config) { c.Storage.UploadDir = "" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.S3.Bucket = "" }},
		{"zero grace", func(c *Config) { c.Sweeper.Grace = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
