package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Missing File Uses Defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.toml"))
		require.NoError(t, err)

		assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Seed.Enabled)
		assert.False(t, cfg.Seed.Force)
		assert.Equal(t, DefaultPasswordCost, cfg.Seed.PasswordCost)
		assert.False(t, cfg.Runtime.Serverless)
	})

	t.Run("File Values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := []byte(`
[database]
path = "/var/lib/backoffice/app.db"
schema_paths = ["/etc/backoffice/schema.sql"]

[seed]
enabled = false
password_cost = 6

[logging]
level = "debug"
`)
		require.NoError(t, os.WriteFile(path, content, 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/backoffice/app.db", cfg.Database.Path)
		assert.Equal(t, []string{"/etc/backoffice/schema.sql"}, cfg.Database.SchemaPaths)
		assert.False(t, cfg.Seed.Enabled)
		assert.Equal(t, 6, cfg.Seed.PasswordCost)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("Environment Overrides File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"error\"\n"), 0644))

		t.Setenv("BACKOFFICE_LOG_LEVEL", "warn")
		t.Setenv("BACKOFFICE_FORCE_SEED", "true")
		t.Setenv("BACKOFFICE_AUDIT_ENABLED", "true")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.True(t, cfg.Seed.Force)
		assert.True(t, cfg.Logging.AuditEnabled)
	})

	t.Run("Remote Credential Aliases", func(t *testing.T) {
		t.Setenv("TURSO_DATABASE_URL", "libsql://demo.turso.io")
		t.Setenv("TURSO_AUTH_TOKEN", "secret")

		cfg, err := LoadConfig("")
		require.NoError(t, err)

		assert.Equal(t, "libsql://demo.turso.io", cfg.Remote.URL)
		assert.Equal(t, "secret", cfg.Remote.AuthToken)
	})

	t.Run("Serverless Signals", func(t *testing.T) {
		t.Setenv("VERCEL", "1")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.True(t, cfg.Runtime.Serverless)
	})

	t.Run("Lambda Function Name", func(t *testing.T) {
		t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "backoffice-api")
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.True(t, cfg.Runtime.Serverless)
	})

	t.Run("Malformed File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[database\npath = "), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestConfig_ParseAndValidate(t *testing.T) {
	t.Run("Defaults Applied", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.ParseAndValidate())

		assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, DefaultPasswordCost, cfg.Seed.PasswordCost)
		assert.Equal(t, 5*time.Second, cfg.BusyTimeoutDuration())
	})

	t.Run("Invalid Level", func(t *testing.T) {
		cfg := &Config{Logging: LoggingConfig{Level: "loud"}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging level")
	})

	t.Run("Invalid Password Cost", func(t *testing.T) {
		cfg := &Config{Seed: SeedConfig{PasswordCost: 64}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid password_cost")
	})

	t.Run("Invalid Busy Timeout", func(t *testing.T) {
		cfg := &Config{Database: DatabaseConfig{BusyTimeout: "soon"}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid busy_timeout")
	})

	t.Run("Remote URL Without Scheme", func(t *testing.T) {
		cfg := &Config{Remote: RemoteConfig{URL: "demo.turso.io"}}
		err := cfg.ParseAndValidate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "missing scheme")
	})
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Remote.URL = "libsql://demo.turso.io"

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
	assert.Equal(t, "libsql://demo.turso.io", loaded.Remote.URL)

	err = SaveConfig(filepath.Join(t.TempDir(), "missing", "config.toml"), cfg)
	assert.Error(t, err)
}
