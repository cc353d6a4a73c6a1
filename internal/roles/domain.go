package roles

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// Wildcard matches any resource or action in a permission pair. As a
// CanAssign entry it matches any role name.
const Wildcard = "*"

// AdminRoleName is the role that bypasses permission checks.
const AdminRoleName = "admin"

var (
	// ErrDuplicateRoleName is returned when a role name is already taken.
	ErrDuplicateRoleName = fmt.Errorf("%w: role name already exists", shared.ErrConflict)
	// ErrRoleNotFound is returned when a role lookup misses.
	ErrRoleNotFound = fmt.Errorf("%w: role not found", shared.ErrNotFound)
	// ErrRoleInUse is returned when deleting a role that identities still reference.
	ErrRoleInUse = fmt.Errorf("%w: role is assigned to identities", shared.ErrConflict)
	// ErrDuplicatePermission is returned when a catalog name is already taken.
	ErrDuplicatePermission = fmt.Errorf("%w: permission already exists", shared.ErrConflict)
	// ErrCatalogEntryNotFound is returned when a permission name is not in the catalog.
	ErrCatalogEntryNotFound = fmt.Errorf("%w: permission not found", shared.ErrNotFound)
	// ErrInvalidPermission is returned for malformed permission pairs or names.
	ErrInvalidPermission = fmt.Errorf("%w: invalid permission", shared.ErrValidation)
)

// Permission is a (resource, action) pair. Either side may be Wildcard.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Name renders the pair as "resource:action".
func (p Permission) Name() string {
	return p.Resource + ":" + p.Action
}

// Matches reports whether the pair grants action on resource.
func (p Permission) Matches(resource, action string) bool {
	return (p.Resource == resource || p.Resource == Wildcard) &&
		(p.Action == action || p.Action == Wildcard)
}

// IsSuperuser reports whether the pair is (*, *).
func (p Permission) IsSuperuser() bool {
	return p.Resource == Wildcard && p.Action == Wildcard
}

// ParsePermission parses "resource:action".
func ParsePermission(name string) (Permission, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(name), ":")
	p := Permission{Resource: strings.TrimSpace(resource), Action: strings.TrimSpace(action)}
	if !ok || p.Resource == "" || p.Action == "" {
		return Permission{}, fmt.Errorf("%w: %q", ErrInvalidPermission, name)
	}
	return p, nil
}

// Role groups permission pairs and the set of role names its holders may
// assign to others.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CanAssign   []string     `json:"canAssign"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsAdmin reports whether the role is the administrator role.
func (r Role) IsAdmin() bool {
	return r.Name == AdminRoleName
}

// Grants reports whether any pair of the role matches (resource, action).
func (r Role) Grants(resource, action string) bool {
	for _, p := range r.Permissions {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// IsSuperuser reports whether the role holds (*, *).
func (r Role) IsSuperuser() bool {
	for _, p := range r.Permissions {
		if p.IsSuperuser() {
			return true
		}
	}
	return false
}

// CatalogEntry is a named permission known to the system.
type CatalogEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Permission returns the pair the entry names.
func (e CatalogEntry) Permission() Permission {
	return Permission{Resource: e.Resource, Action: e.Action}
}

// NormalizeName trims and lower-cases a role name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// dedupe drops repeated pairs while keeping first-seen order.
func dedupe(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
