package cli

import (
	"fmt"
	"io"
	"os"

	"backoffice/internal/config"

	"github.com/spf13/cobra"
)

type ConfigInitOptions struct {
	Path  string
	Force bool
}

func NewConfigCommand(globalOptions *GlobalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file tools",
		// the file may not exist or parse yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	initOptions := &ConfigInitOptions{}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := initOptions.Path
			if path == "" {
				path = globalOptions.CfgFilePath
			}
			return runConfigInit(cmd.OutOrStdout(), path, initOptions.Force)
		},
	}
	initCmd.Flags().StringVar(&initOptions.Path, "path", "", "Where to write the file (defaults to --config_path).")
	initCmd.Flags().BoolVar(&initOptions.Force, "force", false, "Overwrite an existing file.")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	if err := config.SaveConfig(path, config.Default()); err != nil {
		return err
	}
	successf(w, "wrote %s", path)
	return nil
}
