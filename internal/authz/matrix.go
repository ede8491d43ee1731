// filepath: internal/authz/matrix.go
package authz

import (
	"slices"
	"strings"
	"unicode"
)

// Actions that can be granted on a module.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// Modules is the fixed list of permission-bearing modules.
var Modules = []string{
	"customers",
	"suppliers",
	"leads",
	"reservations",
	"payments",
	"invoices",
	"sales_cases",
	"support_tickets",
	"properties",
	"operations",
	"inventory",
	"attendance",
	"leave",
	"reports",
	"notifications",
	"users",
	"roles",
	"settings",
}

// Actions is the fixed list of actions.
var Actions = []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage}

// adminModules are only granted to the admin role.
var adminModules = []string{"users", "roles", "settings"}

var crudActions = []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

var verbs = map[string]string{
	ActionRead:   "View",
	ActionCreate: "Create",
	ActionUpdate: "Edit",
	ActionDelete: "Delete",
	ActionManage: "Manage",
}

// Permission is one (module, action) pair of the matrix.
type Permission struct {
	Module      string
	Action      string
	Name        string
	Description string
}

// Matrix returns every module × action pair, module-major.
func Matrix() []Permission {
	out := make([]Permission, 0, len(Modules)*len(Actions))
	for _, module := range Modules {
		for _, action := range Actions {
			out = append(out, NewPermission(module, action))
		}
	}
	return out
}

// NewPermission derives the display name and description of a pair,
// e.g. ("sales_cases", "update") becomes "Edit Sales Cases".
func NewPermission(module, action string) Permission {
	title := humanize(module)
	verb, ok := verbs[action]
	if !ok {
		verb = humanize(action)
	}
	return Permission{
		Module:      module,
		Action:      action,
		Name:        verb + " " + title,
		Description: "Can " + strings.ToLower(verb) + " " + strings.ToLower(title),
	}
}

// Grantees returns the baseline roles holding p, admin first.
func Grantees(p Permission) []string {
	roles := []string{RoleAdmin}
	if slices.Contains(adminModules, p.Module) {
		return roles
	}

	add := func(role string) {
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	for _, role := range []string{RoleManager, RoleSales, RoleOperations, RoleSupport, RoleAccountant} {
		if slices.Contains(crudActions, p.Action) && slices.Contains(owners[role], p.Module) {
			add(role)
		}
	}
	if p.Action == ActionRead {
		for _, role := range operationalRoles {
			add(role)
		}
		if slices.Contains(staffModules, p.Module) {
			add(RoleStaff)
		}
	}
	return roles
}

func humanize(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
