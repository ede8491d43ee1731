package repository

import (
	"database/sql"
	"strings"
)

// scanRow scans the current row of rows into a Row.
// It dynamically handles whatever columns the statement selected.
func scanRow(rows *sql.Rows) (Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Row{}, err
	}

	// Create slices to hold the pointers to the scanned data.
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range columns {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return Row{}, err
	}

	for i, val := range values {
		// Convert byte slices (TEXT columns) to strings for easier handling.
		if b, ok := val.([]byte); ok {
			values[i] = string(b)
		}
	}

	return Row{Columns: columns, Values: values}, nil
}

// IsAlreadyExists reports whether err says a schema object already exists.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// IsDuplicate reports whether err is a uniqueness conflict.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint failed")
}
