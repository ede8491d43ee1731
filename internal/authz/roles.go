// filepath: internal/authz/roles.go
package authz

// Role names. They match the users.role CHECK constraint.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSales      = "sales"
	RoleOperations = "operations"
	RoleSupport    = "support"
	RoleAccountant = "accountant"
	RoleStaff      = "staff"
)

// Role is a baseline role row.
type Role struct {
	Name        string
	Description string
}

// Roles are the system roles every installation starts with.
var Roles = []Role{
	{RoleAdmin, "Full access to every module"},
	{RoleManager, "Team lead: attendance, leave and reports"},
	{RoleSales, "Customers, leads, reservations and sales cases"},
	{RoleOperations, "Trips, properties, suppliers and inventory"},
	{RoleSupport, "Customer support tickets"},
	{RoleAccountant, "Payments and invoices"},
	{RoleStaff, "Basic employee access"},
}

// operationalRoles receive read access on every non-administrative module.
var operationalRoles = []string{RoleManager, RoleSales, RoleOperations, RoleSupport, RoleAccountant}

// owners maps each role to the modules it maintains.
var owners = map[string][]string{
	RoleSales:      {"customers", "leads", "reservations", "sales_cases"},
	RoleOperations: {"operations", "properties", "suppliers", "inventory"},
	RoleSupport:    {"support_tickets"},
	RoleAccountant: {"payments", "invoices"},
	RoleManager:    {"attendance", "leave", "reports"},
}

// staffModules are readable by every employee.
var staffModules = []string{"notifications", "attendance", "leave"}
