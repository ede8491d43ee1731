package config

// Config holds the application's configuration.
type Config struct {
	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Remote   RemoteConfig   `toml:"remote" mapstructure:"remote"`
	Runtime  RuntimeConfig  `toml:"runtime" mapstructure:"runtime"`
	Seed     SeedConfig     `toml:"seed" mapstructure:"seed"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig holds the local database configuration.
type DatabaseConfig struct {
	Path        string   `toml:"path" mapstructure:"path"`
	BusyTimeout string   `toml:"busy_timeout" mapstructure:"busy_timeout"` // e.g. "5s"
	SchemaPaths []string `toml:"schema_paths" mapstructure:"schema_paths"`
}

// RemoteConfig holds the credentials of the remote libSQL service.
type RemoteConfig struct {
	URL       string `toml:"url" mapstructure:"url"`
	AuthToken string `toml:"auth_token" mapstructure:"auth_token"`
}

// RuntimeConfig describes the execution context.
type RuntimeConfig struct {
	// Serverless is set for hosted, short-lived environments where no
	// writable local disk can be assumed.
	Serverless bool `toml:"serverless" mapstructure:"serverless"`
}

// SeedConfig controls the demo data seeder.
type SeedConfig struct {
	Enabled      bool `toml:"enabled" mapstructure:"enabled"`
	Force        bool `toml:"force" mapstructure:"force"`
	PasswordCost int  `toml:"password_cost" mapstructure:"password_cost"`
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level        string `toml:"level" mapstructure:"level"`
	AuditEnabled bool   `toml:"audit_enabled" mapstructure:"audit_enabled"`
}

// MetricsConfig holds the bootstrap metrics output.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path" mapstructure:"textfile_path"` // empty disables the export
}
