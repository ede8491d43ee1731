// filepath: internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/audit"
	"backoffice/internal/authz"
	"backoffice/internal/config"
	"backoffice/internal/logging"
	"backoffice/internal/repository"
	"backoffice/internal/schema"
	"backoffice/internal/seed"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Options adjust a single InitializeStorage call.
type Options struct {
	// ForceSeed bypasses the seed guard, like seed.force in the configuration.
	ForceSeed bool
	SkipSeed  bool
	Logger    logrus.FieldLogger
	// Metrics defaults to a fresh set when metrics.textfile_path is configured.
	Metrics *Metrics
	// Backend is used instead of the process-wide connection.
	Backend repository.Backend
	// Auditor receives one event per structural change. It defaults to a
	// LoggerAuditor enabled by logging.audit_enabled.
	Auditor audit.Auditor
}

// Result describes a bootstrap run whose mandatory stages succeeded.
type Result struct {
	RunID     string
	Backend   repository.Backend
	Schema    *schema.ApplyReport
	Migration *schema.MigrationReport
	Authz     *authz.Report
	// Seed is nil when seeding was disabled for the run.
	Seed     *seed.Report
	Duration time.Duration
}

var group singleflight.Group

// InitializeStorage runs connect, schema, migrate, authorize and seed in
// that order. Only a failed connection or initial schema is returned as
// an error (a *StageError); the later stages log their failures and the
// run carries on. Overlapping callers that target the same datastore share
// a single run and its result, including the context and options of
// whichever call started it.
func InitializeStorage(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	v, err, shared := group.Do(runKey(cfg), func() (any, error) {
		return run(ctx, cfg, opts)
	})
	res, _ := v.(*Result)
	if shared {
		logging.OrDefault(opts.Logger).Debug("Joined an in-flight storage initialization")
	}
	return res, err
}

// runKey identifies the datastore cfg points at.
func runKey(cfg *config.Config) string {
	return cfg.Database.Path + "|" + cfg.Remote.URL
}

func run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	started := time.Now()
	res := &Result{RunID: ulid.Make().String()}
	log := logging.OrDefault(opts.Logger).WithField("run_id", res.RunID)

	m := opts.Metrics
	if m == nil && cfg.Metrics.TextfilePath != "" {
		m = NewMetrics()
	}
	defer func() {
		if cfg.Metrics.TextfilePath == "" {
			return
		}
		if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			log.WithError(err).Warn("Could not write metrics textfile")
		}
	}()

	// connect
	t := time.Now()
	backend := opts.Backend
	if backend == nil {
		var err error
		if backend, err = repository.Connect(ctx, cfg); err != nil {
			m.observe(StageConnect, t, outcomeFailed)
			log.WithError(err).WithField("stage", StageConnect).Error("Could not connect to the database")
			return nil, &StageError{Stage: StageConnect, Err: err}
		}
	}
	m.observe(StageConnect, t, outcomeOK)
	res.Backend = backend
	log = log.WithField("backend", string(backend.Kind()))

	// schema
	t = time.Now()
	applied, err := schema.NewApplier(backend, cfg.Database.SchemaPaths, log.WithField("stage", StageSchema)).Apply(ctx)
	if err != nil {
		m.observe(StageSchema, t, outcomeFailed)
		log.WithError(err).WithField("stage", StageSchema).Error("Could not create the initial schema")
		return nil, &StageError{Stage: StageSchema, Err: err}
	}
	res.Schema = applied
	m.observe(StageSchema, t, outcomeFor(len(applied.Failed) == 0))

	// migrate
	t = time.Now()
	res.Migration = schema.NewMigrator(backend, log.WithField("stage", StageMigrate)).Migrate(ctx)
	m.observe(StageMigrate, t, outcomeFor(len(res.Migration.Failed) == 0))

	// authorize
	t = time.Now()
	res.Authz = authz.NewBootstrapper(backend, log.WithField("stage", StageAuthorize)).Run(ctx)
	m.observe(StageAuthorize, t, outcomeFor(res.Authz.Failures == 0))

	// seed
	t = time.Now()
	seedLog := log.WithField("stage", StageSeed)
	if opts.SkipSeed || (!cfg.Seed.Enabled && !opts.ForceSeed) {
		m.observe(StageSeed, t, outcomeSkipped)
		seedLog.Info("Demo seed disabled")
	} else {
		seeder, err := seed.NewSeeder(backend, seed.Options{
			Force:        opts.ForceSeed || cfg.Seed.Force,
			PasswordCost: cfg.Seed.PasswordCost,
			Logger:       seedLog,
		})
		if err != nil {
			m.observe(StageSeed, t, outcomeFailed)
			seedLog.WithError(err).Warn("Could not load the demo dataset")
		} else {
			res.Seed = seeder.Run(ctx)
			m.seeded(res.Seed.Inserted())
			switch {
			case res.Seed.SkipReason != "":
				m.observe(StageSeed, t, outcomeSkipped)
			default:
				m.observe(StageSeed, t, outcomeFor(res.Seed.Failed() == 0))
			}
		}
	}

	auditor := opts.Auditor
	if auditor == nil {
		auditor = audit.NewLoggerAuditor(cfg.Logging.AuditEnabled, log)
	}
	res.audit(ctx, auditor)

	res.Duration = time.Since(started)
	m.succeeded()
	log.WithFields(logrus.Fields{
		"duration":       res.Duration.String(),
		"fresh_install":  res.Schema.FreshInstall,
		"tables_created": len(res.Schema.Created),
		"rebuilt":        len(res.Migration.Rebuilt),
	}).Info("Storage initialized")
	return res, nil
}

// audit reports what the run changed. Runs that changed nothing emit no events.
func (r *Result) audit(ctx context.Context, auditor audit.Auditor) {
	actor := "bootstrap/" + r.RunID

	if r.Schema.FreshInstall {
		auditor.Log(ctx, "schema.initialized", actor, "database", map[string]interface{}{"source": r.Schema.ScriptSource})
	}
	for _, table := range r.Schema.Created {
		auditor.Log(ctx, "schema.table_created", actor, table, nil)
	}
	for _, table := range r.Migration.Rebuilt {
		auditor.Log(ctx, "schema.table_rebuilt", actor, table, nil)
	}
	if r.Authz.PermissionsInserted > 0 || r.Authz.GrantsInserted > 0 {
		auditor.Log(ctx, "authz.bootstrapped", actor, "permissions", map[string]interface{}{
			"permissions_inserted": r.Authz.PermissionsInserted,
			"grants_inserted":      r.Authz.GrantsInserted,
		})
	}
	if r.Seed != nil && r.Seed.Inserted() > 0 {
		auditor.Log(ctx, "seed.applied", actor, "database", map[string]interface{}{"rows_inserted": r.Seed.Inserted()})
	}
}

func outcomeFor(ok bool) string {
	if ok {
		return outcomeOK
	}
	return outcomeFailed
}

// Summary is a one-line description of a result for command output.
func (r *Result) Summary() string {
	seeded := "seed disabled"
	if r.Seed != nil {
		seeded = fmt.Sprintf("%d demo rows inserted", r.Seed.Inserted())
		if r.Seed.SkipReason != "" {
			seeded = "seed skipped: " + r.Seed.SkipReason
		}
	}
	return fmt.Sprintf("%s backend, %d tables created, %d tables rebuilt, %d permissions, %s",
		r.Backend.Kind(), len(r.Schema.Created), len(r.Migration.Rebuilt), r.Authz.Permissions, seeded)
}
