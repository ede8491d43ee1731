// filepath: internal/repository/sqlite.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend is the local, file-based engine.
//
// Foreign key enforcement is left at the SQLite default (off): the
// constraint migrator drops and renames referenced tables, which fails
// with enforcement on.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger logrus.FieldLogger
}

// OpenSQLite opens (and creates, if needed) the database file at path.
// The parent directory is created as well.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration, logger logrus.FieldLogger) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
			}
		}
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	// One connection serialises writers inside the process; other
	// processes wait on busy_timeout.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database %s: %w", path, err)
	}

	logger.WithField("path", path).Info("Connected to local database")
	return &SQLiteBackend{db: db, path: path, logger: logger}, nil
}

func (b *SQLiteBackend) Kind() Kind { return KindLocal }

func (b *SQLiteBackend) Capabilities() Capabilities {
	return Capabilities{Transactions: true, MultiStatementScripts: true}
}

func (b *SQLiteBackend) CatalogTable() string { return "sqlite_master" }

// Path returns the database file location.
func (b *SQLiteBackend) Path() string { return b.path }

func (b *SQLiteBackend) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	return execute(ctx, b.db, stmt, args...)
}

func (b *SQLiteBackend) QueryAll(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	return queryAll(ctx, b.db, stmt, args...)
}

func (b *SQLiteBackend) QueryOne(ctx context.Context, stmt string, args ...any) (*Row, error) {
	return queryOne(ctx, b.db, stmt, args...)
}

// ExecScript hands the whole script to the engine in a single call inside
// one transaction. A failing statement leaves none of the script applied.
func (b *SQLiteBackend) ExecScript(ctx context.Context, script string) error {
	return b.Transaction(ctx, func(q Querier) error {
		_, err := q.Execute(ctx, script)
		return err
	})
}

// Transaction runs fn inside BEGIN ... COMMIT. Any error or panic from fn
// rolls the whole transaction back.
func (b *SQLiteBackend) Transaction(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				b.logger.WithError(rbErr).Error("Rollback failed")
			}
		}
	}()

	if err = fn(NewTx(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) DB() *sql.DB { return b.db }

func (b *SQLiteBackend) Close() error { return b.db.Close() }
