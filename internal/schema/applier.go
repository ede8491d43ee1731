// filepath: internal/schema/applier.go
package schema

import (
	"context"
	"fmt"

	"backoffice/internal/authz"
	"backoffice/internal/logging"
	"backoffice/internal/repository"
	"backoffice/internal/shared"

	"github.com/sirupsen/logrus"
)

// BaseTables are the tables the base schema script creates. The base
// schema counts as initialized only when all of them exist; every script
// statement is IF NOT EXISTS, so a run that stopped halfway is resumed
// by running the script again.
var BaseTables = []string{
	"settings", "departments", "users", "roles", "permissions", "role_permissions",
	"customers", "suppliers", "leads", "reservations", "payments", "invoices",
	"support_tickets", "ticket_notes", "categories", "items", "attendance", "leave_requests",
}

// Applier creates the base schema on a fresh datastore and any known
// addition that is missing on an existing one.
type Applier struct {
	backend     repository.Backend
	catalog     *Catalog
	logger      logrus.FieldLogger
	scriptPaths []string
	additions   []Addition
}

// ApplyReport describes what one Apply call changed.
type ApplyReport struct {
	// FreshInstall is true when the base script ran, including a run
	// resuming one that stopped partway.
	FreshInstall bool
	ScriptSource string
	Created      []string
	Failed       map[string]error
}

func NewApplier(b repository.Backend, scriptPaths []string, logger logrus.FieldLogger) *Applier {
	logger = logging.OrDefault(logger)
	return &Applier{
		backend:     b,
		catalog:     NewCatalog(b, logger),
		logger:      logger,
		scriptPaths: scriptPaths,
		additions:   KnownAdditions,
	}
}

// Apply runs the additive step. Only a failure to create the base schema
// or its baseline rows is returned; failed additions are logged and listed
// in the report.
func (a *Applier) Apply(ctx context.Context) (*ApplyReport, error) {
	report := &ApplyReport{Failed: map[string]error{}}

	if missing := a.missingBaseTables(ctx); len(missing) > 0 {
		report.FreshInstall = true
		if err := a.initialize(ctx, report, missing); err != nil {
			return report, err
		}
	}

	err := a.backend.Transaction(ctx, func(q repository.Querier) error {
		return createBaseline(ctx, q)
	})
	if err != nil {
		return report, fmt.Errorf("%w: baseline rows: %w", shared.ErrInitialSchema, err)
	}

	for _, add := range a.additions {
		a.applyAddition(ctx, add, report)
	}

	return report, nil
}

func (a *Applier) missingBaseTables(ctx context.Context) []string {
	var missing []string
	for _, table := range BaseTables {
		if !a.catalog.TableExists(ctx, table) {
			missing = append(missing, table)
		}
	}
	return missing
}

// applyAddition creates add when its table is absent. When the table is
// already there its indexes are still issued, so an index lost to a
// failed remote sequence is created later.
func (a *Applier) applyAddition(ctx context.Context, add Addition, report *ApplyReport) {
	log := a.logger.WithField("table", add.Table)

	if a.catalog.TableExists(ctx, add.Table) {
		for _, stmt := range add.Indexes {
			if _, err := a.backend.Execute(ctx, stmt); err != nil {
				report.Failed[add.Table] = err
				log.WithError(err).Warn("Could not create index, will retry on next start")
			}
		}
		return
	}

	err := a.backend.Transaction(ctx, func(q repository.Querier) error {
		for _, stmt := range add.Statements() {
			if _, err := q.Execute(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		report.Failed[add.Table] = err
		log.WithError(err).Warn("Could not create table, will retry on next start")
		return
	}
	report.Created = append(report.Created, add.Table)
	log.Info("Created table")
}

func (a *Applier) initialize(ctx context.Context, report *ApplyReport, missing []string) error {
	script, source, err := LoadScript(a.scriptPaths, a.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInitialSchema, err)
	}
	report.ScriptSource = source
	a.logger.WithFields(logrus.Fields{
		"source":  source,
		"missing": missing,
	}).Info("Base schema incomplete, applying base schema")

	if err := a.backend.ExecScript(ctx, script); err != nil {
		return fmt.Errorf("%w: running %s: %w", shared.ErrInitialSchema, source, err)
	}
	return nil
}

// createBaseline inserts the system roles and the settings row.
func createBaseline(ctx context.Context, q repository.Querier) error {
	for _, role := range authz.Roles {
		_, err := q.Execute(ctx, "INSERT OR IGNORE INTO roles (name, description, is_system) VALUES (?, ?, 1)", role.Name, role.Description)
		if err != nil {
			return fmt.Errorf("role %s: %w", role.Name, err)
		}
	}
	if _, err := q.Execute(ctx, "INSERT OR IGNORE INTO settings (id) VALUES (1)"); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
