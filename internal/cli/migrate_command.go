package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"backoffice/internal/repository"
	"backoffice/internal/schema"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(globalOptions *GlobalOptions) *cobra.Command {

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Constraint migration tools",
		Long:  `Inspect and apply the table rebuilds that bring outdated CHECK constraints up to date. Use subcommands 'up' or 'status'.`,
	}

	var upCmd = &cobra.Command{
		Use:   "up",
		Short: "Rebuild every table with an outdated constraint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), cmd.OutOrStdout(), "up", globalOptions)
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the state of every constraint migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), cmd.OutOrStdout(), "status", globalOptions)
		},
	}

	// Add subcommands
	migrateCmd.AddCommand(upCmd)
	migrateCmd.AddCommand(statusCmd)

	return migrateCmd
}

func runMigration(ctx context.Context, w io.Writer, command string, globalOptions *GlobalOptions) error {
	backend, err := repository.Open(ctx, globalOptions.Conf)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer backend.Close()

	migrator := schema.NewMigrator(backend, globalOptions.logger())

	switch command {
	case "up":
		return migrateUp(ctx, w, migrator)
	case "status":
		return migrateStatus(ctx, w, migrator, backend, globalOptions)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func migrateUp(ctx context.Context, w io.Writer, migrator *schema.Migrator) error {
	report := migrator.Migrate(ctx)

	for _, table := range report.Rebuilt {
		successf(w, "rebuilt %s", table)
	}
	for _, table := range report.Skipped {
		warningf(w, "skipped %s: %v", table, report.SkipReason)
	}
	for _, table := range sortedKeys(report.Failed) {
		failuref(w, "rebuild of %s rolled back: %v", table, report.Failed[table])
	}
	if report.LedgerErr != nil {
		warningf(w, "migration ledger: %v", report.LedgerErr)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d constraint migrations failed", len(report.Failed))
	}
	if len(report.Rebuilt) == 0 && len(report.Skipped) == 0 {
		successf(w, "all constraints up to date")
	}
	return nil
}

func migrateStatus(ctx context.Context, w io.Writer, migrator *schema.Migrator, backend repository.Backend, globalOptions *GlobalOptions) error {
	steps, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	tables, err := schema.NewCatalog(backend, globalOptions.logger()).Tables(ctx)
	if err != nil {
		return err
	}

	header(w, fmt.Sprintf("Constraint migrations (%s backend)", backend.Kind()))
	if local, ok := backend.(*repository.SQLiteBackend); ok {
		detailf(w, "database %s", local.Path())
	}
	detailf(w, "%d tables: %s", len(tables), strings.Join(tables, ", "))
	for _, s := range steps {
		plainf(w, "%3d  %-32s %-14s %s", s.Version, s.Name, s.Table, stepState(s))
	}
	return nil
}

func stepState(s schema.StepStatus) string {
	switch {
	case s.Stale:
		return red.Sprint("outdated")
	case s.Recorded:
		return green.Sprint("applied")
	default:
		return yellow.Sprint("pending")
	}
}
