// filepath: internal/schema/additions.go
package schema

// Addition is a table introduced after the base schema. It is created
// when absent and never altered afterwards.
type Addition struct {
	Table   string
	Create  string
	Indexes []string
}

// Statements returns the table statement followed by its indexes.
func (a Addition) Statements() []string {
	return append([]string{a.Create}, a.Indexes...)
}

// KnownAdditions lists the additions in creation order; later entries may
// reference earlier ones.
var KnownAdditions = []Addition{
	{
		Table: "sales_cases",
		Create: `CREATE TABLE IF NOT EXISTS sales_cases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT NOT NULL UNIQUE,
    customer_id INTEGER NOT NULL REFERENCES customers(id),
    lead_id INTEGER REFERENCES leads(id),
    title TEXT NOT NULL,
    stage TEXT NOT NULL DEFAULT 'open' CHECK (stage IN ('open', 'in_progress', 'won', 'lost')),
    value REAL NOT NULL DEFAULT 0,
    owner_id INTEGER REFERENCES users(id),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_sales_cases_customer ON sales_cases(customer_id)",
			"CREATE INDEX IF NOT EXISTS idx_sales_cases_stage ON sales_cases(stage)",
		},
	},
	{
		Table: "property_owners",
		Create: `CREATE TABLE IF NOT EXISTS property_owners (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	},
	{
		Table: "properties",
		Create: `CREATE TABLE IF NOT EXISTS properties (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    owner_id INTEGER NOT NULL REFERENCES property_owners(id),
    name TEXT NOT NULL,
    property_type TEXT NOT NULL DEFAULT 'apartment',
    city TEXT,
    bedrooms INTEGER NOT NULL DEFAULT 1,
    nightly_rate REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'maintenance')),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner_id)",
		},
	},
	{
		Table: "property_availability",
		Create: `CREATE TABLE IF NOT EXISTS property_availability (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    property_id INTEGER NOT NULL REFERENCES properties(id),
    date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'booked', 'blocked')),
    price REAL,
    UNIQUE (property_id, date)
)`,
	},
	{
		Table: "operations_trips",
		Create: `CREATE TABLE IF NOT EXISTS operations_trips (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    reservation_id INTEGER REFERENCES reservations(id),
    destination TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT,
    status TEXT NOT NULL DEFAULT 'planned' CHECK (status IN ('planned', 'in_progress', 'completed', 'cancelled')),
    coordinator_id INTEGER REFERENCES users(id),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_operations_trips_reservation ON operations_trips(reservation_id)",
		},
	},
	{
		Table: "operations_tasks",
		Create: `CREATE TABLE IF NOT EXISTS operations_tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id INTEGER NOT NULL REFERENCES operations_trips(id),
    title TEXT NOT NULL,
    assigned_to INTEGER REFERENCES users(id),
    due_date TEXT,
    status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'done')),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (trip_id, title)
)`,
	},
	{
		Table: "operations_services",
		Create: `CREATE TABLE IF NOT EXISTS operations_services (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trip_id INTEGER NOT NULL REFERENCES operations_trips(id),
    supplier_id INTEGER REFERENCES suppliers(id),
    service_type TEXT NOT NULL,
    description TEXT,
    cost REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'requested' CHECK (status IN ('requested', 'confirmed', 'cancelled')),
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (trip_id, service_type)
)`,
	},
	{
		Table: "notifications",
		Create: `CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT UNIQUE,
    user_id INTEGER NOT NULL REFERENCES users(id),
    title TEXT NOT NULL,
    message TEXT,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)",
		},
	},
	{
		Table: "activities",
		Create: `CREATE TABLE IF NOT EXISTS activities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT UNIQUE,
    user_id INTEGER REFERENCES users(id),
    entity_type TEXT NOT NULL,
    entity_id INTEGER,
    action TEXT NOT NULL,
    details TEXT,
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		Indexes: []string{
			"CREATE INDEX IF NOT EXISTS idx_activities_entity ON activities(entity_type, entity_id)",
		},
	},
}
