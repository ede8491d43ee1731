package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"backoffice/internal/shared"
)

// Kind identifies the storage engine behind a Backend.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Result is the outcome of a statement that returns no rows.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Capabilities describes what a backend can guarantee.
type Capabilities struct {
	// Transactions is true when Transaction is all-or-nothing.
	Transactions bool
	// MultiStatementScripts is true when ExecScript sends the script in one call.
	MultiStatementScripts bool
}

// Querier executes parameterized statements. Backends and the handle
// passed to a Transaction callback both implement it.
type Querier interface {
	Execute(ctx context.Context, stmt string, args ...any) (Result, error)
	QueryAll(ctx context.Context, stmt string, args ...any) ([]Row, error)
	// QueryOne returns nil and no error when the statement yields no row.
	QueryOne(ctx context.Context, stmt string, args ...any) (*Row, error)
}

// Backend is a connection to one storage engine.
type Backend interface {
	Querier

	Kind() Kind
	Capabilities() Capabilities
	// CatalogTable names the system table listing schema objects.
	CatalogTable() string

	// ExecScript runs a script of semicolon separated statements. It is
	// all-or-nothing when Capabilities().Transactions is true.
	ExecScript(ctx context.Context, script string) error

	// Transaction runs fn against a scoped Querier. Inside fn only that
	// Querier may be used; the local engine holds a single connection.
	Transaction(ctx context.Context, fn func(q Querier) error) error

	// DB exposes the underlying pool for libraries that need *sql.DB.
	DB() *sql.DB
	Close() error
}

// SafeNameRegex matches identifiers that may be interpolated into SQL.
var SafeNameRegex = regexp.MustCompile("^[a-zA-Z_][a-zA-Z0-9_]*$")

// QuoteIdent validates name and returns it double-quoted.
func QuoteIdent(name string) (string, error) {
	if !SafeNameRegex.MatchString(name) {
		return "", fmt.Errorf("identifier %q: %w", name, shared.ErrInvalidName)
	}
	return `"` + name + `"`, nil
}

var (
	_ Backend = (*SQLiteBackend)(nil)
	_ Backend = (*LibSQLBackend)(nil)
	_ Querier = (*Tx)(nil)
)
