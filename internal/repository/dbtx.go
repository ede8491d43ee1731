package repository

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Tx is a wrapper around *sql.Tx that satisfies Querier.
type Tx struct {
	*sql.Tx
}

// NewTx wraps tx, e.g. the transaction a migration framework hands out.
func NewTx(tx *sql.Tx) *Tx {
	return &Tx{Tx: tx}
}

func (tx *Tx) Execute(ctx context.Context, stmt string, args ...any) (Result, error) {
	return execute(ctx, tx.Tx, stmt, args...)
}

func (tx *Tx) QueryAll(ctx context.Context, stmt string, args ...any) ([]Row, error) {
	return queryAll(ctx, tx.Tx, stmt, args...)
}

func (tx *Tx) QueryOne(ctx context.Context, stmt string, args ...any) (*Row, error) {
	return queryOne(ctx, tx.Tx, stmt, args...)
}

func execute(ctx context.Context, h dbtx, stmt string, args ...any) (Result, error) {
	res, err := h.ExecContext(ctx, stmt, args...)
	if err != nil {
		return Result{}, err
	}
	var out Result
	// Not every driver reports both values; zero means unknown.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func queryAll(ctx context.Context, h dbtx, stmt string, args ...any) ([]Row, error) {
	rows, err := h.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func queryOne(ctx context.Context, h dbtx, stmt string, args ...any) (*Row, error) {
	rows, err := h.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, err
	}
	return &row, nil
}
