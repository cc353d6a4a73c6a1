package rbac

import (
	"fmt"
	"strings"

	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// Actions used by route requirements.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
)

var (
	// ErrForbidden is returned when the caller lacks the required capability.
	ErrForbidden = fmt.Errorf("%w: insufficient permissions", shared.ErrForbidden)
	// ErrSelfModificationForbidden is returned when a caller targets their own identity.
	ErrSelfModificationForbidden = fmt.Errorf("%w: cannot modify your own account", shared.ErrForbidden)
)

// Capability is the (resource, action) pair a route needs.
type Capability struct {
	Resource string
	Action   string
}

// IsZero reports whether no capability is required.
func (c Capability) IsZero() bool {
	return c.Resource == "" && c.Action == ""
}

func (c Capability) String() string {
	return c.Resource + ":" + c.Action
}

// Requirement is what a route declares about who may call it.
type Requirement struct {
	Capability            Capability
	RoleAllowList         []string
	SelfActionRestriction bool
}

// Needs returns a requirement for (resource, action).
func Needs(resource, action string) Requirement {
	return Requirement{Capability: Capability{Resource: resource, Action: action}}
}

// Authenticated is the requirement of routes open to any signed-in identity.
func Authenticated() Requirement {
	return Requirement{}
}

// OnlyRoles restricts the requirement to the named roles.
func (r Requirement) OnlyRoles(names ...string) Requirement {
	list := make([]string, 0, len(r.RoleAllowList)+len(names))
	list = append(list, r.RoleAllowList...)
	for _, n := range names {
		if n = roles.NormalizeName(n); n != "" {
			list = append(list, n)
		}
	}
	r.RoleAllowList = list
	return r
}

// NotSelf forbids update and delete actions on the caller's own identity.
func (r Requirement) NotSelf() Requirement {
	r.SelfActionRestriction = true
	return r
}

// Caller is the authenticated identity together with its loaded role.
type Caller struct {
	IdentityID string
	Role       roles.Role
}

// Reason explains a Decision.
type Reason string

const (
	ReasonAdminBypass      Reason = "admin_bypass"
	ReasonGranted          Reason = "granted"
	ReasonForbidden        Reason = "forbidden"
	ReasonSelfModification Reason = "self_modification"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Err maps a denial to its error; it returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonSelfModification {
		return ErrSelfModificationForbidden
	}
	return ErrForbidden
}

// Outcome is "allow" or "deny".
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

func containsName(list []string, name string) bool {
	for _, n := range list {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
