package bootstrap

import "github.com/taskdesk/taskdesk/internal/roles"

// PermissionSpec is a catalog entry the seeder guarantees.
type PermissionSpec struct {
	Name        string
	Description string
}

// RoleSpec is a predefined role. Permissions are catalog names.
type RoleSpec struct {
	Name        string
	CanAssign   []string
	Permissions []string
}

// Permissions lists the catalog seeded on every run.
var Permissions = []PermissionSpec{
	{"*:*", "Full access to every resource"},
	{"tasks:read", "View tasks"},
	{"tasks:create", "Create tasks"},
	{"tasks:update", "Update tasks"},
	{"tasks:delete", "Delete tasks"},
	{"workorders:read", "View work orders"},
	{"workorders:create", "Request work orders"},
	{"workorders:update", "Update work orders"},
	{"workorders:delete", "Delete work orders"},
	{"pricelist:read", "View the price list"},
	{"pricelist:create", "Add price list items"},
	{"pricelist:update", "Change price list items"},
	{"pricelist:delete", "Remove price list items"},
	{"users:read", "View users"},
	{"users:update", "Change user roles"},
	{"users:delete", "Delete users"},
	{"roles:read", "View roles"},
	{"roles:create", "Create roles"},
	{"roles:update", "Change role permissions"},
	{"roles:delete", "Delete roles"},
	{"permissions:read", "View the permission catalog"},
	{"permissions:assign", "Grant permissions to roles"},
	{"audit:read", "View the audit log"},
}

// Roles lists the predefined roles.
var Roles = []RoleSpec{
	{
		Name:        roles.AdminRoleName,
		CanAssign:   []string{roles.Wildcard},
		Permissions: []string{"*:*"},
	},
	{
		Name:      "manager",
		CanAssign: []string{"employee", "customer"},
		Permissions: []string{
			"tasks:read", "tasks:create", "tasks:update", "tasks:delete",
			"workorders:read", "workorders:create", "workorders:update", "workorders:delete",
			"pricelist:read", "pricelist:create", "pricelist:update", "pricelist:delete",
			"users:read", "users:update",
		},
	},
	{
		Name: "employee",
		Permissions: []string{
			"tasks:read", "tasks:update",
			"workorders:read", "workorders:update",
			"pricelist:read",
		},
	},
	{
		Name: "customer",
		Permissions: []string{
			"workorders:create", "workorders:read",
			"pricelist:read", "tasks:read",
		},
	},
}
