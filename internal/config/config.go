package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"backoffice/internal/logging"
	"backoffice/internal/shared"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	DefaultDatabasePath = "data/backoffice.db"
	DefaultBusyTimeout  = "5s"
	DefaultPasswordCost = 10

	// bcrypt bounds
	minPasswordCost = 4
	maxPasswordCost = 31
)

// envBindings maps configuration keys to the environment variables that
// can set them. The first variable that is set wins.
var envBindings = map[string][]string{
	"database.path":         {"BACKOFFICE_DATABASE_PATH"},
	"remote.url":            {"BACKOFFICE_REMOTE_URL", "TURSO_DATABASE_URL"},
	"remote.auth_token":     {"BACKOFFICE_REMOTE_TOKEN", "TURSO_AUTH_TOKEN"},
	"runtime.serverless":    {"BACKOFFICE_SERVERLESS", "VERCEL"},
	"seed.enabled":          {"BACKOFFICE_SEED_ENABLED"},
	"seed.force":            {"BACKOFFICE_FORCE_SEED"},
	"logging.level":         {"BACKOFFICE_LOG_LEVEL"},
	"logging.audit_enabled": {"BACKOFFICE_AUDIT_ENABLED"},
	"metrics.textfile_path": {"BACKOFFICE_METRICS_FILE"},
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        DefaultDatabasePath,
			BusyTimeout: DefaultBusyTimeout,
		},
		Seed: SeedConfig{
			Enabled:      true,
			PasswordCost: DefaultPasswordCost,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads the TOML file at path (a missing file is not an error)
// and applies environment overrides on top of it.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.busy_timeout", def.Database.BusyTimeout)
	v.SetDefault("database.schema_paths", []string{})
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("runtime.serverless", false)
	v.SetDefault("seed.enabled", def.Seed.Enabled)
	v.SetDefault("seed.force", false)
	v.SetDefault("seed.password_cost", def.Seed.PasswordCost)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.audit_enabled", false)
	v.SetDefault("metrics.textfile_path", "")

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			logging.Log.Debugf("config file %s not found, using defaults and environment", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// AWS Lambda exposes the function name, not a boolean
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		cfg.Runtime.Serverless = true
	}

	return &cfg, nil
}

// SaveConfig writes the configuration to a TOML file.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trying to save the config: %w", shared.ErrorCreateFile)
	}
	defer f.Close()
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("trying to save the config: %w", shared.ErrorEncodeFile)
	}
	return nil
}

// ParseAndValidate fills in missing defaults and rejects invalid values.
func (c *Config) ParseAndValidate() error {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Database.BusyTimeout == "" {
		c.Database.BusyTimeout = DefaultBusyTimeout
	}
	if _, err := shared.ParseDuration(c.Database.BusyTimeout); err != nil {
		return fmt.Errorf("invalid busy_timeout: %w", err)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	if c.Seed.PasswordCost == 0 {
		c.Seed.PasswordCost = DefaultPasswordCost
	}
	if c.Seed.PasswordCost < minPasswordCost || c.Seed.PasswordCost > maxPasswordCost {
		return fmt.Errorf("invalid password_cost %d: must be between %d and %d", c.Seed.PasswordCost, minPasswordCost, maxPasswordCost)
	}

	c.Remote.URL = strings.TrimSpace(c.Remote.URL)
	c.Remote.AuthToken = strings.TrimSpace(c.Remote.AuthToken)
	if c.Remote.URL != "" && !strings.Contains(c.Remote.URL, "://") {
		return fmt.Errorf("invalid remote url %q: missing scheme", c.Remote.URL)
	}

	return nil
}

// BusyTimeoutDuration returns the parsed lock wait of the local engine.
func (c *Config) BusyTimeoutDuration() time.Duration {
	d, err := shared.ParseDuration(c.Database.BusyTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
