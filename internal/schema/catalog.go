// filepath: internal/schema/catalog.go
package schema

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"backoffice/internal/logging"
	"backoffice/internal/repository"

	"github.com/sirupsen/logrus"
)

// Catalog answers structural questions from the engine's own metadata.
// Nothing is cached: every call reads the catalog again.
type Catalog struct {
	q      repository.Querier
	table  string
	logger logrus.FieldLogger
}

// NewCatalog returns a Catalog reading the system table of b.
func NewCatalog(b repository.Backend, logger logrus.FieldLogger) *Catalog {
	return &Catalog{q: b, table: b.CatalogTable(), logger: logging.OrDefault(logger)}
}

// WithQuerier returns a Catalog reading through q, e.g. inside a transaction.
func (c *Catalog) WithQuerier(q repository.Querier) *Catalog {
	return &Catalog{q: q, table: c.table, logger: c.logger}
}

// TableExists reports whether a table called name exists. A failed lookup
// is logged and reported as absent.
func (c *Catalog) TableExists(ctx context.Context, name string) bool {
	stmt := fmt.Sprintf("SELECT name FROM %s WHERE type = 'table' AND name = ?", c.table)
	row, err := c.q.QueryOne(ctx, stmt, name)
	if err != nil {
		c.logger.WithError(err).WithField("table", name).Warn("Catalog lookup failed, treating table as absent")
		return false
	}
	return row != nil
}

// TableDefinition returns the stored CREATE statement of a table.
func (c *Catalog) TableDefinition(ctx context.Context, name string) (string, bool) {
	stmt := fmt.Sprintf("SELECT sql FROM %s WHERE type = 'table' AND name = ?", c.table)
	row, err := c.q.QueryOne(ctx, stmt, name)
	if err != nil {
		c.logger.WithError(err).WithField("table", name).Warn("Catalog lookup failed, treating table as absent")
		return "", false
	}
	if row == nil {
		return "", false
	}
	return row.String("sql"), true
}

// Tables lists the user tables in name order.
func (c *Catalog) Tables(ctx context.Context) ([]string, error) {
	stmt := fmt.Sprintf("SELECT name FROM %s WHERE type = 'table' AND name NOT LIKE 'sqlite_%%' ORDER BY name", c.table)
	rows, err := c.q.QueryAll(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.String("name"))
	}
	return names, nil
}

// Columns lists the column names of a table in declaration order.
func (c *Catalog) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.q.QueryAll(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	cols := make([]string, 0, len(rows))
	for _, row := range rows {
		cols = append(cols, row.String("name"))
	}
	return cols, nil
}

// DefinitionContains reports whether def contains fragment, ignoring case
// and whitespace.
func DefinitionContains(def, fragment string) bool {
	return strings.Contains(normalizeSQL(def), normalizeSQL(fragment))
}

func normalizeSQL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
