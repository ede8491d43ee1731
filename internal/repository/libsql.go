// filepath: internal/repository/libsql.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"backoffice/internal/shared"

	"github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libSQL driver
)

const remotePingTimeout = 10 * time.Second

// LibSQLBackend is the remote engine reached over the libSQL protocol.
// Each statement is a separate network round trip and there are no
// transactions: Transaction runs its statements serially and reports a
// failure as partially applied.
type LibSQLBackend struct {
	db     *sql.DB
	host   string
	logger logrus.FieldLogger

	// serialises statement sequences issued through Transaction
	seqMu sync.Mutex
}

// OpenLibSQL connects to the remote service at rawURL with token.
func OpenLibSQL(ctx context.Context, rawURL, token string, logger logrus.FieldLogger) (*LibSQLBackend, error) {
	if rawURL == "" || token == "" {
		return nil, fmt.Errorf("remote url and auth token are both required: %w", shared.ErrMissingCredentials)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()

	db, err := sql.Open("libsql", u.String())
	if err != nil {
		return nil, fmt.Errorf("opening remote database %s: %w", u.Host, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, remotePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to remote database %s: %w", u.Host, err)
	}

	logger.WithField("host", u.Host).Info("Connected to remote database")
	return &LibSQLBackend{db: db, host: u.Host, logger: logger}, nil
}

func (b *LibSQLBackend) Kind() Kind { return KindRemote }

func (b *LibSQLBackend) Capabilities() Capabilities {
	return Capabilities{Transactions: false, MultiStatementScripts: false}
}

func (b *LibSQLBackend) CatalogTable() string { return "sqlite_schema" }

func (b *LibSQLBackend) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	return execute(ctx, b.db, stmt, args...)
}

func (b *LibSQLBackend) QueryAll(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	return queryAll(ctx, b.db, stmt, args...)
}

func (b *LibSQLBackend) QueryOne(ctx context.Context, stmt string, args ...any) (*Row, error) {
	return queryOne(ctx, b.db, stmt, args...)
}

// ExecScript splits the script and sends the statements one at a time.
func (b *LibSQLBackend) ExecScript(ctx context.Context, script string) error {
	stmts := SplitStatements(script)
	applied, err := execStatements(ctx, b.db, stmts, b.logger)
	b.logger.WithFields(logrus.Fields{
		"statements": len(stmts),
		"applied":    applied,
	}).Debug("Remote script executed")
	return err
}

// Transaction runs fn with the backend itself as the Querier. Statements
// that ran before a failure stay applied.
func (b *LibSQLBackend) Transaction(ctx context.Context, fn func(q Querier) error) error {
	b.seqMu.Lock()
	defer b.seqMu.Unlock()

	if err := fn(b); err != nil {
		b.logger.WithError(err).Warn("Remote statement sequence failed, earlier statements remain applied")
		return fmt.Errorf("%w: %w", shared.ErrPartiallyApplied, err)
	}
	return nil
}

func (b *LibSQLBackend) DB() *sql.DB { return b.db }

func (b *LibSQLBackend) Close() error { return b.db.Close() }
