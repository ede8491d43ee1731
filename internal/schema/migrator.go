// filepath: internal/schema/migrator.go
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"backoffice/internal/logging"
	"backoffice/internal/repository"
	"backoffice/internal/shared"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"
)

// LedgerTable records which constraint migrations have been applied.
const LedgerTable = "schema_migrations"

// migrateMu keeps two rebuilds from overlapping within one process.
// Other processes are held off by the engine's write lock.
var migrateMu sync.Mutex

// Migrator brings stale CHECK constraints up to date by rebuilding tables.
type Migrator struct {
	backend repository.Backend
	catalog *Catalog
	logger  logrus.FieldLogger
	steps   []ConstraintMigration
}

// MigrationReport describes one Migrate call.
type MigrationReport struct {
	Rebuilt []string
	// Skipped lists stale tables left alone because the backend cannot
	// rebuild them atomically; SkipReason then says why.
	Skipped    []string
	SkipReason error
	Failed  map[string]error
	// LedgerErr is set when the version ledger could not be used; the
	// reconcile pass still ran.
	LedgerErr error
}

// StepStatus is the state of one registered migration.
type StepStatus struct {
	Version  int64
	Name     string
	Table    string
	Stale    bool
	Recorded bool
}

func NewMigrator(b repository.Backend, logger logrus.FieldLogger) *Migrator {
	logger = logging.OrDefault(logger)
	return &Migrator{
		backend: b,
		catalog: NewCatalog(b, logger),
		logger:  logger,
		steps:   ConstraintMigrations,
	}
}

// Migrate rebuilds every table whose definition is stale. It never
// returns an error: failures roll back, are logged and reported, and the
// table keeps its previous definition.
func (m *Migrator) Migrate(ctx context.Context) *MigrationReport {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	report := &MigrationReport{Failed: map[string]error{}}

	if !m.backend.Capabilities().Transactions {
		for _, step := range m.steps {
			def, _ := m.catalog.TableDefinition(ctx, step.Table)
			if step.IsStale(def) {
				report.Skipped = append(report.Skipped, step.Table)
				report.SkipReason = shared.ErrTransactionsUnsupported
				m.logger.WithError(report.SkipReason).WithFields(logrus.Fields{"table": step.Table, "migration": step.Name}).
					Warn("Constraint is outdated, skipping rebuild")
			}
		}
		return report
	}

	attempted := map[string]bool{}

	provider, err := m.provider(report, attempted)
	if err == nil {
		var results []*goose.MigrationResult
		results, err = provider.Up(ctx)
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"duration": r.Duration.String(),
			}).Debug("Constraint migration recorded")
		}
	}
	if err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		report.LedgerErr = err
		m.logger.WithError(err).Warn("Migration ledger run incomplete, reconciling from catalog")
	}

	// catch tables that are stale although the ledger says otherwise,
	// e.g. after a restore from an old backup
	for _, step := range m.steps {
		if attempted[step.Table] {
			continue
		}
		def, _ := m.catalog.TableDefinition(ctx, step.Table)
		if !step.IsStale(def) {
			continue
		}
		attempted[step.Table] = true
		err := m.backend.Transaction(ctx, func(q repository.Querier) error {
			return m.rebuild(ctx, q, step)
		})
		m.record(report, step, err)
	}

	return report
}

// Status reports every registered step. Recorded is always false on a
// backend without a ledger.
func (m *Migrator) Status(ctx context.Context) ([]StepStatus, error) {
	recorded := map[int64]bool{}
	if m.backend.Capabilities().Transactions {
		provider, err := m.provider(&MigrationReport{Failed: map[string]error{}}, map[string]bool{})
		if err != nil {
			return nil, err
		}
		states, err := provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading migration ledger: %w", err)
		}
		for _, s := range states {
			recorded[s.Source.Version] = s.State == goose.StateApplied
		}
	}

	out := make([]StepStatus, 0, len(m.steps))
	for _, step := range m.steps {
		def, _ := m.catalog.TableDefinition(ctx, step.Table)
		out = append(out, StepStatus{
			Version:  step.Version,
			Name:     step.Name,
			Table:    step.Table,
			Stale:    step.IsStale(def),
			Recorded: recorded[step.Version],
		})
	}
	return out, nil
}

// provider registers every step as a goose Go migration. Each one checks
// the catalog first, so on an up to date table it only records the version.
func (m *Migrator) provider(report *MigrationReport, attempted map[string]bool) (*goose.Provider, error) {
	migrations := make([]*goose.Migration, 0, len(m.steps))
	for _, step := range m.steps {
		up := &goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
			q := repository.NewTx(tx)
			def, _ := m.catalog.WithQuerier(q).TableDefinition(ctx, step.Table)
			if !step.IsStale(def) {
				return nil
			}
			attempted[step.Table] = true
			err := m.rebuild(ctx, q, step)
			m.record(report, step, err)
			return err
		}}
		migrations = append(migrations, goose.NewGoMigration(step.Version, up, nil))
	}

	store, err := database.NewStore(database.DialectSQLite3, LedgerTable)
	if err != nil {
		return nil, fmt.Errorf("creating migration store: %w", err)
	}
	provider, err := goose.NewProvider("", m.backend.DB(), nil,
		goose.WithStore(store),
		goose.WithGoMigrations(migrations...),
		goose.WithDisableGlobalRegistry(true),
		goose.WithLogger(m.logger.WithField("component", "goose")),
		goose.WithVerbose(debugEnabled(m.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return provider, nil
}

// rebuild swaps step.Table for a copy carrying the new constraint. q must
// be transactional: a failure at any point leaves the original in place.
func (m *Migrator) rebuild(ctx context.Context, q repository.Querier, step ConstraintMigration) error {
	shadow := step.ShadowTable()
	catalog := m.catalog.WithQuerier(q)

	if _, err := q.Execute(ctx, "DROP TABLE IF EXISTS "+quote(shadow)); err != nil {
		return fmt.Errorf("dropping leftover %s: %w", shadow, err)
	}
	if _, err := q.Execute(ctx, fmt.Sprintf(step.ShadowDDL, quote(shadow))); err != nil {
		return fmt.Errorf("creating %s: %w", shadow, err)
	}

	columns, err := sharedColumns(ctx, catalog, step.Table, shadow)
	if err != nil {
		return err
	}

	if _, err := q.Execute(ctx, step.copyStatement(columns)); err != nil {
		return fmt.Errorf("copying rows into %s: %w", shadow, err)
	}
	if err := sameRowCount(ctx, q, step.Table, shadow); err != nil {
		return err
	}

	if _, err := q.Execute(ctx, "DROP TABLE "+quote(step.Table)); err != nil {
		return fmt.Errorf("dropping %s: %w", step.Table, err)
	}
	if _, err := q.Execute(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(shadow), quote(step.Table))); err != nil {
		return fmt.Errorf("renaming %s: %w", shadow, err)
	}
	for _, stmt := range step.Indexes {
		if _, err := q.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("recreating index on %s: %w", step.Table, err)
		}
	}
	return nil
}

// debugEnabled reports whether l writes debug entries; goose only reports
// each applied version when verbose.
func debugEnabled(l logrus.FieldLogger) bool {
	switch v := l.(type) {
	case *logrus.Logger:
		return v.IsLevelEnabled(logrus.DebugLevel)
	case *logrus.Entry:
		return v.Logger.IsLevelEnabled(logrus.DebugLevel)
	}
	return false
}

func (m *Migrator) record(report *MigrationReport, step ConstraintMigration, err error) {
	log := m.logger.WithFields(logrus.Fields{"table": step.Table, "migration": step.Name})
	if err != nil {
		report.Failed[step.Table] = err
		log.WithError(err).Warn("Constraint migration rolled back, table keeps its previous definition")
		return
	}
	report.Rebuilt = append(report.Rebuilt, step.Table)
	log.Info("Constraint migration applied")
}

// sharedColumns returns the shadow's columns that the original also has,
// in the shadow's order. Missing ones take the shadow's defaults.
func sharedColumns(ctx context.Context, catalog *Catalog, original, shadow string) ([]string, error) {
	have, err := catalog.Columns(ctx, original)
	if err != nil {
		return nil, err
	}
	want, err := catalog.Columns(ctx, shadow)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, col := range want {
		if slices.Contains(have, col) {
			out = append(out, col)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s and %s share no columns", original, shadow)
	}
	return out, nil
}

func sameRowCount(ctx context.Context, q repository.Querier, a, b string) error {
	row, err := q.QueryOne(ctx, fmt.Sprintf("SELECT (SELECT COUNT(*) FROM %s) AS a, (SELECT COUNT(*) FROM %s) AS b", quote(a), quote(b)))
	if err != nil {
		return fmt.Errorf("counting rows: %w", err)
	}
	if row.Int64("a") != row.Int64("b") {
		return fmt.Errorf("row count mismatch after copy: %s has %d, %s has %d", a, row.Int64("a"), b, row.Int64("b"))
	}
	return nil
}
