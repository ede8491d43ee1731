package cli

import (
	"context"
	"io"
	"sort"

	"backoffice/internal/bootstrap"
	"backoffice/internal/logging"
	"backoffice/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type InitOptions struct {
	ForceSeed   bool
	SkipSeed    bool
	MetricsFile string
}

func NewInitCommand(globalOptions *GlobalOptions) *cobra.Command {
	initOptions := &InitOptions{}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create, migrate, authorize and seed the datastore",
		Long: `Runs the full storage bootstrap: connects to the configured backend, creates missing tables,
rebuilds tables with outdated constraints, inserts permissions and grants, and seeds demo data
when the datastore holds no business data yet. Safe to run on every start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), globalOptions, initOptions)
		},
	}

	initOptions.registerFlags(initCmd)

	return initCmd
}

func (options *InitOptions) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&options.ForceSeed, "force-seed", false, "Seed demo data even if business data exists. (Env: BACKOFFICE_FORCE_SEED=true)")
	cmd.Flags().BoolVar(&options.SkipSeed, "skip-seed", false, "Do not seed demo data.")
	cmd.Flags().StringVar(&options.MetricsFile, "metrics-file", "", "Write bootstrap metrics to this node-exporter textfile. (Env: BACKOFFICE_METRICS_FILE)")
}

func runInit(ctx context.Context, w io.Writer, globalOptions *GlobalOptions, initOptions *InitOptions) error {
	conf := *globalOptions.Conf
	if initOptions.MetricsFile != "" {
		conf.Metrics.TextfilePath = initOptions.MetricsFile
	}
	defer repository.Shutdown()

	res, err := bootstrap.InitializeStorage(ctx, &conf, bootstrap.Options{
		ForceSeed: initOptions.ForceSeed,
		SkipSeed:  initOptions.SkipSeed,
		Logger:    globalOptions.logger(),
	})
	if err != nil {
		failuref(w, "%v", err)
		return err
	}

	successf(w, "Storage ready (%s)", res.Summary())
	detailf(w, "run %s took %s", res.RunID, res.Duration)
	for _, table := range sortedKeys(res.Schema.Failed) {
		warningf(w, "table %s could not be created: %v", table, res.Schema.Failed[table])
	}
	for _, table := range res.Migration.Skipped {
		warningf(w, "table %s has an outdated constraint: %v", table, res.Migration.SkipReason)
	}
	for _, table := range sortedKeys(res.Migration.Failed) {
		warningf(w, "rebuild of %s rolled back: %v", table, res.Migration.Failed[table])
	}
	if res.Authz.Failures > 0 {
		warningf(w, "%d permission inserts failed; they are retried on the next run", res.Authz.Failures)
	}
	if res.Seed != nil && res.Seed.Failed() > 0 {
		warningf(w, "%d demo rows could not be seeded", res.Seed.Failed())
	}
	return nil
}

func (options *GlobalOptions) logger() logrus.FieldLogger {
	if options.Logger == nil {
		return logging.Log
	}
	return options.Logger
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
