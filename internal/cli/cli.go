package cli

import (
	"errors"
	"fmt"
	"os"

	"backoffice/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes other than the ones carried by the error itself.
const (
	ExitOK     = 0
	ExitConfig = 1
)

type GlobalOptions struct {
	CfgFilePath  string
	LogLevel     string
	DatabasePath string
	AuditEnabled bool
	NoColor      bool

	Logger *logrus.Logger
	Conf   *config.Config
}

func NewRootCMD() *cobra.Command {
	return newRootCMD(&GlobalOptions{})
}

func newRootCMD(globalOptions *GlobalOptions) *cobra.Command {
	rootCMD := &cobra.Command{
		Use:   "backoffice",
		Short: "Back-office storage tools",
		Long:  "Creates, migrates and seeds the back-office datastore on a local file or a remote libSQL database.",
		// load the configuration once for every subcommand
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(globalOptions, cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// register global flags
	globalOptions.registerFlags(rootCMD)

	// add subcommands
	rootCMD.AddCommand(NewInitCommand(globalOptions))
	rootCMD.AddCommand(NewMigrateCommand(globalOptions))
	rootCMD.AddCommand(NewSeedCommand(globalOptions))
	rootCMD.AddCommand(NewConfigCommand(globalOptions))

	return rootCMD
}

func (options *GlobalOptions) registerFlags(cmd *cobra.Command) {
	// flags that can be used for each command
	cmd.PersistentFlags().StringVar(&options.CfgFilePath, "config_path", "config.toml", "Path to the base configuration file. (Env: BACKOFFICE_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "", "Logging level (debug, info, warn, error). (Env: BACKOFFICE_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&options.DatabasePath, "database-path", "", "Path of the local database file. (Env: BACKOFFICE_DATABASE_PATH)")
	cmd.PersistentFlags().BoolVar(&options.AuditEnabled, "audit-enabled", false, "Log an audit event for every schema or data change. (Env: BACKOFFICE_AUDIT_ENABLED=true)")
	cmd.PersistentFlags().BoolVar(&options.NoColor, "no-color", false, "Disable coloured output.")
}

// exitCoder is implemented by errors that choose their own exit code.
type exitCoder interface {
	ExitCode() int
}

// ExitCodeFor maps an error returned by a command to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitConfig
}

func Execute() {

	rootCmd := NewRootCMD()

	// Run the command based on os.Args
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCodeFor(err))
	}
}
