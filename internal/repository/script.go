package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// SplitStatements splits a SQL script on statement terminators.
// Semicolons inside quoted strings, quoted identifiers and comments do not
// split. Fragments holding only whitespace or comments are dropped.
// Trigger bodies (BEGIN ... END) are not supported.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
		hasCode bool
	)

	flush := func() {
		if hasCode {
			out = append(out, strings.TrimSpace(current.String()))
		}
		current.Reset()
		hasCode = false
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case c == '-' && next == '-':
			end := i
			for end < len(runes) && runes[end] != '\n' {
				end++
			}
			current.WriteString(string(runes[i:end]))
			i = end - 1
		case c == '/' && next == '*':
			end := i + 2
			for end+1 < len(runes) && !(runes[end] == '*' && runes[end+1] == '/') {
				end++
			}
			end = min(end+2, len(runes))
			current.WriteString(string(runes[i:end]))
			i = end - 1
		case c == '\'' || c == '"' || c == '`':
			// a doubled quote inside the literal closes and reopens it,
			// which leaves the scan in the right state
			end := i + 1
			for end < len(runes) && runes[end] != c {
				end++
			}
			end = min(end+1, len(runes))
			current.WriteString(string(runes[i:end]))
			hasCode = true
			i = end - 1
		case c == ';':
			flush()
		default:
			current.WriteRune(c)
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				hasCode = true
			}
		}
	}
	flush()

	return out
}

// statementExecer is the subset of *sql.DB used to run a split script.
type statementExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execStatements runs stmts one by one. Errors saying an object already
// exists or a row is a duplicate are logged and skipped so that a partially
// applied run can be resumed; any other error stops the sequence.
// It returns the number of statements that took effect.
func execStatements(ctx context.Context, h statementExecer, stmts []string, logger logrus.FieldLogger) (int, error) {
	applied := 0
	for i, stmt := range stmts {
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			if IsAlreadyExists(err) || IsDuplicate(err) {
				logger.WithError(err).WithField("statement", i+1).Warn("Statement already applied, continuing")
				continue
			}
			return applied, fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
		}
		applied++
	}
	return applied, nil
}
