// filepath: internal/seed/seeder.go
package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"backoffice/internal/logging"
	"backoffice/internal/repository"
	"backoffice/internal/shared"

	"github.com/Masterminds/squirrel"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// GuardTables must all be empty for an unforced run to seed anything.
var GuardTables = []string{"customers", "reservations", "leads", "sales_cases"}

type Options struct {
	// Force bypasses the guard and the per-stage emptiness checks.
	Force        bool
	PasswordCost int
	// Dataset defaults to the built-in demo records.
	Dataset *Dataset
	Logger  logrus.FieldLogger
}

// Seeder inserts a dataset, reusing rows that already exist.
type Seeder struct {
	Querier repository.Querier
	Builder squirrel.StatementBuilderType // SQL Query Builder
	Logger  logrus.FieldLogger

	force   bool
	cost    int
	dataset *Dataset
	// ids memoises natural key to id for the lifetime of the seeder.
	ids *cache.Cache
}

// Record is one row to find or create.
type Record struct {
	Table string
	// Key lists the natural key columns; their values are taken from Values.
	Key    []string
	Values map[string]any
}

func (r Record) cacheKey() string {
	parts := make([]string, len(r.Key))
	for i, col := range r.Key {
		parts[i] = fmt.Sprintf("%s=%v", col, r.Values[col])
	}
	return r.Table + ":" + strings.Join(parts, ",")
}

// StageReport counts what happened to the rows of one stage.
type StageReport struct {
	Stage    string
	Inserted int
	Reused   int
	Failed   int
	// SkipReason is empty when the stage ran.
	SkipReason string
}

// Report summarises one seed run.
type Report struct {
	// SkipReason is set when the guard stopped the whole run.
	SkipReason string
	Stages     []StageReport
}

func (r *Report) Inserted() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Inserted
	}
	return n
}

func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Failed
	}
	return n
}

func NewSeeder(q repository.Querier, opts Options) (*Seeder, error) {
	ds := opts.Dataset
	if ds == nil {
		var err error
		if ds, err = DemoDataset(); err != nil {
			return nil, err
		}
	}
	cost := opts.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Seeder{
		Querier: q,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		Logger:  logging.OrDefault(opts.Logger),
		force:   opts.Force,
		cost:    cost,
		dataset: ds,
		ids:     cache.New(cache.NoExpiration, 0),
	}, nil
}

// Run seeds every stage in order. Nothing is returned as an error: a
// failing row or stage is logged and counted, and later stages still run.
func (s *Seeder) Run(ctx context.Context) *Report {
	report := &Report{}

	if !s.force {
		empty, err := s.guardTablesEmpty(ctx)
		if err != nil {
			report.SkipReason = "guard check failed"
			s.Logger.WithError(err).Warn("Could not check for existing data, skipping demo seed")
			return report
		}
		if !empty {
			report.SkipReason = "data already present"
			s.Logger.Info("Existing business data found, skipping demo seed")
			return report
		}
	}

	for _, st := range s.dataset.Stages {
		report.Stages = append(report.Stages, s.runStage(ctx, st))
	}

	s.Logger.WithFields(logrus.Fields{
		"stages":   len(report.Stages),
		"inserted": report.Inserted(),
		"failed":   report.Failed(),
		"forced":   s.force,
	}).Info("Demo seed finished")
	return report
}

func (s *Seeder) guardTablesEmpty(ctx context.Context) (bool, error) {
	for _, table := range GuardTables {
		n, err := s.count(ctx, table)
		if err != nil {
			return false, fmt.Errorf("counting %s: %w", table, err)
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *Seeder) runStage(ctx context.Context, st Stage) StageReport {
	sr := StageReport{Stage: st.Name}
	log := s.Logger.WithFields(logrus.Fields{"stage": st.Name, "table": st.Table})

	if !s.force && !st.Always {
		n, err := s.count(ctx, st.Table)
		if err != nil {
			sr.SkipReason = "table unavailable"
			log.WithError(err).Warn("Skipping seed stage")
			return sr
		}
		if n > 0 {
			sr.SkipReason = "table not empty"
			log.Debug("Skipping seed stage, table already has rows")
			return sr
		}
	}

	fallbacks, err := s.fallbacks(ctx, st)
	if err != nil {
		sr.SkipReason = "upstream ids unavailable"
		log.WithError(err).Warn("Skipping seed stage")
		return sr
	}

	for i, row := range st.Rows {
		rec, err := s.record(ctx, st, row, fallbacks)
		if err == nil {
			var created bool
			if _, created, err = s.FindOrCreate(ctx, rec); err == nil {
				if created {
					sr.Inserted++
				} else {
					sr.Reused++
				}
				continue
			}
		}
		sr.Failed++
		log.WithError(err).WithField("row", i).Warn("Could not seed row")
	}

	log.WithFields(logrus.Fields{
		"inserted": sr.Inserted,
		"reused":   sr.Reused,
		"failed":   sr.Failed,
	}).Debug("Seed stage finished")
	return sr
}

// FindOrCreate inserts rec unless a row with the same natural key exists,
// and returns the id of the inserted or existing row.
func (s *Seeder) FindOrCreate(ctx context.Context, rec Record) (int64, bool, error) {
	key := rec.cacheKey()
	if id, ok := s.ids.Get(key); ok {
		return id.(int64), false, nil
	}

	stmt, args, err := s.Builder.Insert(rec.Table).
		Options("OR IGNORE").
		SetMap(rec.Values).
		ToSql()
	if err != nil {
		return 0, false, err
	}
	res, err := s.Querier.Execute(ctx, stmt, args...)
	if err != nil {
		return 0, false, fmt.Errorf("inserting into %s: %w", rec.Table, err)
	}

	id, created := res.LastInsertID, res.RowsAffected > 0
	if !created || id == 0 {
		match := squirrel.Eq{}
		for _, col := range rec.Key {
			match[col] = rec.Values[col]
		}
		var found bool
		id, found, err = s.lookupID(ctx, rec.Table, match)
		if err != nil {
			return 0, false, err
		}
		if !found {
			return 0, false, fmt.Errorf("%s: %w", key, shared.ErrUnresolved)
		}
	}

	s.ids.Set(key, id, cache.NoExpiration)
	return id, created, nil
}

// record turns a dataset row into column values: references become ids
// and hashed fields become hashes.
func (s *Seeder) record(ctx context.Context, st Stage, row map[string]any, fallbacks map[string]any) (Record, error) {
	values := make(map[string]any, len(row))
	for col, v := range row {
		if target, ok := st.Hash[col]; ok {
			hash, err := bcrypt.GenerateFromPassword([]byte(fmt.Sprint(v)), s.cost)
			if err != nil {
				return Record{}, fmt.Errorf("hashing %s: %w", col, err)
			}
			values[target] = string(hash)
			continue
		}
		ref, ok := st.Refs[col]
		if !ok || v == nil {
			values[col] = v
			continue
		}
		id, found, err := s.resolve(ctx, ref, v)
		if err != nil {
			return Record{}, err
		}
		if !found {
			s.Logger.WithFields(logrus.Fields{
				"table":    st.Table,
				"column":   col,
				"upstream": ref.Table,
				"key":      v,
			}).Info("Upstream row not found, using an existing one")
			values[col] = fallbacks[col]
			continue
		}
		values[col] = id
	}
	return Record{Table: st.Table, Key: st.Key, Values: values}, nil
}

func (s *Seeder) resolve(ctx context.Context, ref Ref, keyValue any) (int64, bool, error) {
	key := Record{Table: ref.Table, Key: []string{ref.Key}, Values: map[string]any{ref.Key: keyValue}}.cacheKey()
	if id, ok := s.ids.Get(key); ok {
		return id.(int64), true, nil
	}
	id, found, err := s.lookupID(ctx, ref.Table, squirrel.Eq{ref.Key: keyValue})
	if err != nil || !found {
		return 0, false, err
	}
	s.ids.Set(key, id, cache.NoExpiration)
	return id, true, nil
}

// fallbacks picks, per referenced column, the oldest row of the upstream
// table. A required reference to an empty table is an error.
func (s *Seeder) fallbacks(ctx context.Context, st Stage) (map[string]any, error) {
	cols := make([]string, 0, len(st.Refs))
	for col := range st.Refs {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	out := make(map[string]any, len(cols))
	for _, col := range cols {
		ref := st.Refs[col]
		stmt, args, err := s.Builder.Select("id").From(ref.Table).OrderBy("id").Limit(1).ToSql()
		if err != nil {
			return nil, err
		}
		row, err := s.Querier.QueryOne(ctx, stmt, args...)
		switch {
		case err == nil && row != nil:
			out[col] = row.Int64("id")
		case ref.Optional:
			out[col] = nil
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", ref.Table, err)
		default:
			return nil, fmt.Errorf("%s has no rows for %s", ref.Table, col)
		}
	}
	return out, nil
}

func (s *Seeder) lookupID(ctx context.Context, table string, match squirrel.Eq) (int64, bool, error) {
	stmt, args, err := s.Builder.Select("id").From(table).Where(match).Limit(1).ToSql()
	if err != nil {
		return 0, false, err
	}
	row, err := s.Querier.QueryOne(ctx, stmt, args...)
	if err != nil {
		return 0, false, fmt.Errorf("looking up %s: %w", table, err)
	}
	if row == nil {
		return 0, false, nil
	}
	return row.Int64("id"), true, nil
}

func (s *Seeder) count(ctx context.Context, table string) (int64, error) {
	stmt, args, err := s.Builder.Select("COUNT(*) AS n").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	row, err := s.Querier.QueryOne(ctx, stmt, args...)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Int64("n"), nil
}
