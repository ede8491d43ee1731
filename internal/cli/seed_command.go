package cli

import (
	"context"
	"fmt"
	"io"

	"backoffice/internal/repository"
	"backoffice/internal/seed"

	"github.com/spf13/cobra"
)

type SeedOptions struct {
	Force   bool   // Seed even if business data exists
	Dataset string // YAML file replacing the built-in records
}

func NewSeedCommand(globalOptions *GlobalOptions) *cobra.Command {

	seedOptions := &SeedOptions{}

	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo records",
		Long: `Inserts the built-in demonstration records into an initialized datastore. Records that already
exist are reused, so running it twice changes nothing. Without --force it does nothing once
customers, leads, reservations or sales cases exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), globalOptions, seedOptions)
		},
	}

	seedOptions.registerFlags(seedCommand)

	return seedCommand
}

func (opt *SeedOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opt.Force, "force", false, "Seed even if business data exists. (Env: BACKOFFICE_FORCE_SEED=true)")
	cmd.Flags().StringVar(&opt.Dataset, "dataset", "", "Path to a YAML dataset to seed instead of the demo records.")
}

func runSeed(ctx context.Context, w io.Writer, globalOptions *GlobalOptions, seedOptions *SeedOptions) error {
	conf := globalOptions.Conf

	backend, err := repository.Open(ctx, conf)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer backend.Close()

	var dataset *seed.Dataset
	if seedOptions.Dataset != "" {
		if dataset, err = seed.LoadDataset(seedOptions.Dataset); err != nil {
			return err
		}
	}

	seeder, err := seed.NewSeeder(backend, seed.Options{
		Dataset:      dataset,
		Force:        seedOptions.Force || conf.Seed.Force,
		PasswordCost: conf.Seed.PasswordCost,
		Logger:       globalOptions.logger(),
	})
	if err != nil {
		return err
	}

	report := seeder.Run(ctx)
	if report.SkipReason != "" {
		warningf(w, "demo seed skipped: %s (use --force to seed anyway)", report.SkipReason)
		return nil
	}

	header(w, "Demo seed")
	for _, st := range report.Stages {
		if st.SkipReason != "" {
			plainf(w, "  %-22s %s", st.Stage, yellow.Sprint("skipped: "+st.SkipReason))
			continue
		}
		line := fmt.Sprintf("%d inserted, %d reused", st.Inserted, st.Reused)
		if st.Failed > 0 {
			line += red.Sprintf(", %d failed", st.Failed)
		}
		plainf(w, "  %-22s %s", st.Stage, line)
	}
	successf(w, "%d rows inserted", report.Inserted())
	return nil
}
