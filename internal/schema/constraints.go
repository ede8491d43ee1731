// filepath: internal/schema/constraints.go
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Remap rewrites values of one column while rows are copied. Values not
// in the map pass through unchanged.
type Remap struct {
	Column string
	Values map[string]string
}

// ConstraintMigration rebuilds a table whose CHECK constraint changed.
type ConstraintMigration struct {
	Version int64
	Name    string
	Table   string
	// Fingerprint is a fragment only the obsolete definition contains.
	Fingerprint string
	// ShadowDDL creates the table with the new constraint; %s is the table name.
	ShadowDDL string
	Remap     *Remap
	// Indexes are recreated after the rename.
	Indexes []string
}

// ConstraintMigrations is the registry, in version order. Each step is
// independent of the others.
var ConstraintMigrations = []ConstraintMigration{
	{
		Version:     1,
		Name:        "users_role_expanded",
		Table:       "users",
		Fingerprint: "'agent'",
		ShadowDDL: `CREATE TABLE %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin', 'manager', 'sales', 'operations', 'support', 'accountant', 'staff')),
    department_id INTEGER REFERENCES departments(id),
    phone TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    last_login_at TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Remap: &Remap{Column: "role", Values: map[string]string{"agent": "sales"}},
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",
			"CREATE INDEX IF NOT EXISTS idx_users_department ON users(department_id)",
		},
	},
	{
		Version:     2,
		Name:        "leads_status_pipeline",
		Table:       "leads",
		Fingerprint: "'converted'",
		ShadowDDL: `CREATE TABLE %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT NOT NULL UNIQUE,
    customer_id INTEGER REFERENCES customers(id),
    title TEXT NOT NULL,
    source TEXT,
    status TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'contacted', 'qualified', 'proposal', 'negotiation', 'won', 'lost')),
    estimated_value REAL NOT NULL DEFAULT 0,
    assigned_to INTEGER REFERENCES users(id),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Remap: &Remap{Column: "status", Values: map[string]string{"converted": "won"}},
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status)",
			"CREATE INDEX IF NOT EXISTS idx_leads_customer ON leads(customer_id)",
		},
	},
	{
		Version:     3,
		Name:        "reservations_status_lifecycle",
		Table:       "reservations",
		Fingerprint: "('pending', 'confirmed', 'cancelled')",
		ShadowDDL: `CREATE TABLE %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    lead_id INTEGER REFERENCES leads(id),
    service_type TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT,
    guests INTEGER NOT NULL DEFAULT 1,
    total_amount REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'checked_in', 'completed', 'cancelled', 'no_show')),
    created_by INTEGER REFERENCES users(id),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)",
			"CREATE INDEX IF NOT EXISTS idx_reservations_customer ON reservations(customer_id)",
		},
	},
}

// IsStale reports whether a stored definition still carries the
// obsolete constraint. An empty definition (no table) is not stale.
func (m ConstraintMigration) IsStale(definition string) bool {
	return definition != "" && DefinitionContains(definition, m.Fingerprint)
}

// ShadowTable is the temporary name the rebuilt table is created under.
func (m ConstraintMigration) ShadowTable() string {
	return m.Table + "__rebuild"
}

// copyStatement copies columns from the original into the shadow table,
// applying the remap.
func (m ConstraintMigration) copyStatement(columns []string) string {
	targets := make([]string, len(columns))
	exprs := make([]string, len(columns))
	for i, col := range columns {
		targets[i] = quote(col)
		exprs[i] = quote(col)
		if m.Remap != nil && m.Remap.Column == col && len(m.Remap.Values) > 0 {
			exprs[i] = remapExpr(col, m.Remap.Values)
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		quote(m.ShadowTable()), strings.Join(targets, ", "), strings.Join(exprs, ", "), quote(m.Table))
}

func remapExpr(col string, values map[string]string) string {
	olds := make([]string, 0, len(values))
	for old := range values {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	var sb strings.Builder
	sb.WriteString("CASE " + quote(col))
	for _, old := range olds {
		sb.WriteString(fmt.Sprintf(" WHEN %s THEN %s", literal(old), literal(values[old])))
	}
	sb.WriteString(" ELSE " + quote(col) + " END")
	return sb.String()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
