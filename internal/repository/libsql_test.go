package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"backoffice/internal/logging"
	"backoffice/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRemoteDB returns a LibSQLBackend whose statements go to a local
// SQLite file, so its statement-by-statement semantics can be checked
// without a network service.
func setupRemoteDB(t *testing.T) (*LibSQLBackend, func()) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "remote.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	backend := &LibSQLBackend{db: db, host: "test", logger: logging.Log}
	return backend, func() { backend.Close() }
}

func TestLibSQLBackend_Capabilities(t *testing.T) {
	backend, cleanup := setupRemoteDB(t)
	defer cleanup()

	assert.Equal(t, KindRemote, backend.Kind())
	assert.False(t, backend.Capabilities().Transactions)
	assert.False(t, backend.Capabilities().MultiStatementScripts)
	assert.Equal(t, "sqlite_schema", backend.CatalogTable())
}

func TestLibSQLBackend_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		backend, cleanup := setupRemoteDB(t)
		defer cleanup()

		err := backend.Transaction(ctx, func(q Querier) error {
			if _, err := q.Execute(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
				return err
			}
			_, err := q.Execute(ctx, "INSERT INTO notes (body) VALUES ('a')")
			return err
		})
		require.NoError(t, err)

		row, err := backend.QueryOne(ctx, "SELECT COUNT(*) AS n FROM notes")
		require.NoError(t, err)
		assert.Equal(t, int64(1), row.Int64("n"))
	})

	t.Run("Failure Is Partially Applied", func(t *testing.T) {
		backend, cleanup := setupRemoteDB(t)
		defer cleanup()

		_, err := backend.Execute(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
		require.NoError(t, err)

		err = backend.Transaction(ctx, func(q Querier) error {
			for _, body := range []string{"a", "b"} {
				if _, err := q.Execute(ctx, "INSERT INTO notes (body) VALUES (?)", body); err != nil {
					return err
				}
			}
			_, err := q.Execute(ctx, "INSERT INTO nope (body) VALUES ('c')")
			return err
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrPartiallyApplied))
		assert.Contains(t, err.Error(), "no such table")

		// statements before the failure stay applied
		row, err := backend.QueryOne(ctx, "SELECT COUNT(*) AS n FROM notes")
		require.NoError(t, err)
		assert.Equal(t, int64(2), row.Int64("n"))
	})
}

func TestLibSQLBackend_ExecScript(t *testing.T) {
	ctx := context.Background()

	t.Run("Already Applied Statements Are Tolerated", func(t *testing.T) {
		backend, cleanup := setupRemoteDB(t)
		defer cleanup()

		script := `
			CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);
			INSERT INTO tags (name) VALUES ('vip');
		`
		require.NoError(t, backend.ExecScript(ctx, script))

		// a second run hits "already exists" and a duplicate row
		require.NoError(t, backend.ExecScript(ctx, script+"CREATE TABLE labels (id INTEGER PRIMARY KEY);"))

		row, err := backend.QueryOne(ctx, "SELECT COUNT(*) AS n FROM tags")
		require.NoError(t, err)
		assert.Equal(t, int64(1), row.Int64("n"))

		row, err = backend.QueryOne(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'labels'")
		require.NoError(t, err)
		assert.NotNil(t, row)
	})

	t.Run("Other Errors Abort", func(t *testing.T) {
		backend, cleanup := setupRemoteDB(t)
		defer cleanup()

		err := backend.ExecScript(ctx, `
			CREATE TABLE first (id INTEGER PRIMARY KEY);
			INSERT INTO missing (id) VALUES (1);
			CREATE TABLE third (id INTEGER PRIMARY KEY);
		`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "statement 2 of 3")

		row, err := backend.QueryOne(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'first'")
		require.NoError(t, err)
		assert.NotNil(t, row, "statements before the failure stay applied")

		row, err = backend.QueryOne(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'third'")
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}
