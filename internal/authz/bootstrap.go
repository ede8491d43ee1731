// filepath: internal/authz/bootstrap.go
package authz

import (
	"context"
	"fmt"

	"backoffice/internal/logging"
	"backoffice/internal/repository"

	"github.com/Masterminds/squirrel"
	"github.com/sirupsen/logrus"
)

// Bootstrapper inserts the permission matrix and the baseline grants.
// It only ever inserts: grants added or removed by hand are left alone,
// apart from baseline grants, which come back if deleted.
type Bootstrapper struct {
	Querier repository.Querier
	Builder squirrel.StatementBuilderType // SQL Query Builder
	Logger  logrus.FieldLogger
}

// Report summarises one bootstrap run.
type Report struct {
	Permissions         int
	PermissionsInserted int
	GrantsInserted      int
	Failures            int
}

func NewBootstrapper(q repository.Querier, logger logrus.FieldLogger) *Bootstrapper {
	return &Bootstrapper{
		Querier: q,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		Logger:  logging.OrDefault(logger),
	}
}

// Run walks the matrix. A failing permission or grant is logged and the
// walk continues with the next one.
func (b *Bootstrapper) Run(ctx context.Context) *Report {
	report := &Report{}
	for _, p := range Matrix() {
		report.Permissions++
		log := b.Logger.WithFields(logrus.Fields{"module": p.Module, "action": p.Action})

		inserted, err := b.insertPermission(ctx, p)
		if err != nil {
			report.Failures++
			log.WithError(err).Warn("Could not insert permission")
			continue
		}
		if inserted {
			report.PermissionsInserted++
		}

		id, err := b.permissionID(ctx, p)
		if err != nil {
			report.Failures++
			log.WithError(err).Warn("Could not resolve permission")
			continue
		}

		for _, role := range Grantees(p) {
			granted, err := b.grant(ctx, role, id)
			if err != nil {
				report.Failures++
				log.WithError(err).WithField("role", role).Warn("Could not grant permission")
				continue
			}
			if granted {
				report.GrantsInserted++
			}
		}
	}

	b.Logger.WithFields(logrus.Fields{
		"permissions":          report.Permissions,
		"permissions_inserted": report.PermissionsInserted,
		"grants_inserted":      report.GrantsInserted,
		"failures":             report.Failures,
	}).Info("Authorization bootstrap finished")
	return report
}

func (b *Bootstrapper) insertPermission(ctx context.Context, p Permission) (bool, error) {
	stmt, args, err := b.Builder.Insert("permissions").
		Options("OR IGNORE").
		Columns("module", "action", "name", "description").
		Values(p.Module, p.Action, p.Name, p.Description).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := b.Querier.Execute(ctx, stmt, args...)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

func (b *Bootstrapper) permissionID(ctx context.Context, p Permission) (int64, error) {
	stmt, args, err := b.Builder.Select("id").
		From("permissions").
		Where(squirrel.Eq{"module": p.Module, "action": p.Action}).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, err
	}
	row, err := b.Querier.QueryOne(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, fmt.Errorf("permission %s.%s missing after insert", p.Module, p.Action)
	}
	return row.Int64("id"), nil
}

func (b *Bootstrapper) grant(ctx context.Context, role string, permissionID int64) (bool, error) {
	stmt, args, err := b.Builder.Insert("role_permissions").
		Options("OR IGNORE").
		Columns("role", "permission_id").
		Values(role, permissionID).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := b.Querier.Execute(ctx, stmt, args...)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}
