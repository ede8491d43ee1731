package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	matrix := Matrix()
	assert.Len(t, matrix, len(Modules)*len(Actions))

	seen := map[string]bool{}
	for _, p := range matrix {
		key := p.Module + "." + p.Action
		assert.False(t, seen[key], "duplicate pair %s", key)
		seen[key] = true
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Description)
	}
}

func TestNewPermission(t *testing.T) {
	tests := []struct {
		module, action string
		name           string
		description    string
	}{
		{"sales_cases", ActionUpdate, "Edit Sales Cases", "Can edit sales cases"},
		{"customers", ActionRead, "View Customers", "Can view customers"},
		{"support_tickets", ActionManage, "Manage Support Tickets", "Can manage support tickets"},
		{"leave", ActionDelete, "Delete Leave", "Can delete leave"},
	}
	for _, tc := range tests {
		p := NewPermission(tc.module, tc.action)
		assert.Equal(t, tc.name, p.Name)
		assert.Equal(t, tc.description, p.Description)
	}
}

func TestGrantees(t *testing.T) {
	tests := []struct {
		name     string
		module   string
		action   string
		includes []string
		excludes []string
	}{
		{"Admin Module", "users", ActionRead, []string{RoleAdmin}, []string{RoleManager, RoleSales, RoleStaff}},
		{"Admin Manage", "settings", ActionManage, []string{RoleAdmin}, []string{RoleManager}},
		{"Owner CRUD", "customers", ActionCreate, []string{RoleAdmin, RoleSales}, []string{RoleOperations, RoleStaff}},
		{"Owner Delete", "payments", ActionDelete, []string{RoleAdmin, RoleAccountant}, []string{RoleSales, RoleSupport}},
		{"Manage Is Admin Only", "customers", ActionManage, []string{RoleAdmin}, []string{RoleSales}},
		{"Operational Read", "invoices", ActionRead, []string{RoleAdmin, RoleManager, RoleSales, RoleOperations, RoleSupport, RoleAccountant}, []string{RoleStaff}},
		{"Staff Read", "notifications", ActionRead, []string{RoleStaff, RoleSupport}, nil},
		{"Staff Cannot Write", "leave", ActionCreate, []string{RoleManager}, []string{RoleStaff}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			roles := Grantees(NewPermission(tc.module, tc.action))
			assert.Equal(t, RoleAdmin, roles[0])
			for _, r := range tc.includes {
				assert.Contains(t, roles, r)
			}
			for _, r := range tc.excludes {
				assert.NotContains(t, roles, r)
			}
		})
	}
}

func TestGrantees_NoDuplicates(t *testing.T) {
	for _, p := range Matrix() {
		roles := Grantees(p)
		seen := map[string]bool{}
		for _, r := range roles {
			assert.False(t, seen[r], "%s granted twice on %s.%s", r, p.Module, p.Action)
			seen[r] = true
		}
	}
}
