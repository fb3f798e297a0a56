package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ggc", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "|", cfg.Import.Separator)
		assert.Equal(t, 1<<20, cfg.Import.MaxLineBytes)
		assert.Equal(t, 100, cfg.Import.MaxErrors)
		assert.Equal(t, 500*time.Millisecond, cfg.Import.WatchDebounce)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.False(t, cfg.Database.Enabled)
		assert.False(t, cfg.Redis.Enabled)
		assert.True(t, cfg.Idempotency.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, "ggc", cfg.Telemetry.ServiceName)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("GGC_APP_PORT", "9000")
		t.Setenv("GGC_IMPORT_SOURCE", "s3://inventory/current.txt")
		t.Setenv("GGC_IMPORT_WATCH", "true")
		t.Setenv("GGC_IMPORT_POLL_INTERVAL", "30s")
		t.Setenv("GGC_DATABASE_ENABLED", "true")
		t.Setenv("GGC_DATABASE_DRIVER", "postgres")
		t.Setenv("GGC_DATABASE_PASSWORD", "secret")
		t.Setenv("GGC_REDIS_PORT", "6380")
		t.Setenv("GGC_IDEMPOTENCY_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "s3://inventory/current.txt", cfg.Import.Source)
		assert.True(t, cfg.Import.Watch)
		assert.Equal(t, 30*time.Second, cfg.Import.PollInterval)
		assert.True(t, cfg.Database.Enabled)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "secret", cfg.Database.Password)
		assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
		assert.False(t, cfg.Idempotency.Enabled)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("GGC_DATABASE_DRIVER", "mysql")
		_, err := Load()
		assert.ErrorContains(t, err, "database.driver")
	})

	t.Run("production rejects sslmode disable for postgres", func(t *testing.T) {
		t.Setenv("GGC_APP_ENV", "production")
		t.Setenv("GGC_DATABASE_ENABLED", "true")
		t.Setenv("GGC_DATABASE_DRIVER", "postgres")
		t.Setenv("GGC_DATABASE_PASSWORD", "secret")
		_, err := Load()
		assert.ErrorContains(t, err, "sslmode")
	})

	t.Run("production rejects insecure telemetry", func(t *testing.T) {
		t.Setenv("GGC_APP_ENV", "production")
		t.Setenv("GGC_TELEMETRY_ENABLED", "true")
		t.Setenv("GGC_TELEMETRY_INSECURE", "true")
		_, err := Load()
		assert.ErrorContains(t, err, "telemetry.insecure")
	})

	t.Run("sampling ratio out of range", func(t *testing.T) {
		t.Setenv("GGC_TELEMETRY_SAMPLING_RATIO", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "sampling_ratio")
	})
}

func TestLoadFrom(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ggc.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[app]
port = "7070"

[import]
source = "/data/inventory.txt"
separator = ";"
max_errors = 10

[database]
enabled = true
path = ":memory:"
`), 0o600))

		cfg, err := LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.App.Port)
		assert.Equal(t, "/data/inventory.txt", cfg.Import.Source)
		assert.Equal(t, ";", cfg.Import.Separator)
		assert.Equal(t, 10, cfg.Import.MaxErrors)
		assert.True(t, cfg.Database.Enabled)
		assert.Equal(t, ":memory:", cfg.Database.Path)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "ggc", Password: "p@ss word", DBName: "inventory", SSLMode: "require"}
	assert.Equal(t, "postgres://ggc:p%40ss%20word@db:5432/inventory?sslmode=require", d.DSN())
}
