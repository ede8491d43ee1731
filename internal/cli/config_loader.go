package cli

import (
	"fmt"
	"os"

	"backoffice/internal/config"
	"backoffice/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultConfigPath = "config.toml"

// initializeConfig loads the file, applies environment and flag
// overrides, validates the result and configures logging.
func initializeConfig(options *GlobalOptions, cmd *cobra.Command) error {
	// 1. Check environment variable for config path first
	if envPath := os.Getenv("BACKOFFICE_CONFIG_PATH"); envPath != "" && !cmd.Flags().Changed("config_path") {
		options.CfgFilePath = envPath
	}
	if options.CfgFilePath == "" {
		options.CfgFilePath = defaultConfigPath
	}

	// 2. File and environment variables
	conf, err := config.LoadConfig(options.CfgFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", options.CfgFilePath, err)
	}

	// 3. CLI flags take precedence
	applyOverrides(conf, options, cmd.Flags())

	// 4. Validate
	if err := conf.ParseAndValidate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// 5. Initialize Logging
	logging.Init(conf.Logging.Level)
	if options.NoColor {
		color.NoColor = true
	}

	options.Conf = conf
	options.Logger = logging.Log
	return nil
}

// applyOverrides copies explicitly set flags into the configuration.
func applyOverrides(c *config.Config, options *GlobalOptions, flags *pflag.FlagSet) {
	if flags.Changed("log-level") {
		c.Logging.Level = options.LogLevel
	}
	if flags.Changed("database-path") {
		c.Database.Path = options.DatabasePath
	}
	if flags.Changed("audit-enabled") {
		c.Logging.AuditEnabled = options.AuditEnabled
	}
}
