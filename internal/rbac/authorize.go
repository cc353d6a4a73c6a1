package rbac

import "github.com/taskdesk/taskdesk/internal/roles"

// Authorize decides whether caller may perform req against targetID.
// targetID is the identity a route acts on and may be empty.
//
// Checks run in order: self-restriction (admins included), admin bypass,
// role allow-list, capability. An empty allow-list or capability is not
// checked.
func Authorize(caller Caller, req Requirement, targetID string) Decision {
	if req.SelfActionRestriction && targetID != "" && targetID == caller.IdentityID {
		switch req.Capability.Action {
		case ActionUpdate, ActionDelete:
			return Decision{Reason: ReasonSelfModification}
		}
	}

	if caller.Role.IsAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdminBypass}
	}

	if len(req.RoleAllowList) > 0 && !passesAllowList(caller.Role, req.RoleAllowList) {
		return Decision{Reason: ReasonForbidden}
	}

	if !req.Capability.IsZero() && !caller.Role.Grants(req.Capability.Resource, req.Capability.Action) {
		return Decision{Reason: ReasonForbidden}
	}

	return Decision{Allowed: true, Reason: ReasonGranted}
}

// passesAllowList accepts listed roles, roles that may assign any role and
// roles holding (*, *).
func passesAllowList(role roles.Role, allow []string) bool {
	if containsName(allow, role.Name) {
		return true
	}
	if containsName(role.CanAssign, roles.Wildcard) {
		return true
	}
	return role.IsSuperuser()
}

// CanAssignRole reports whether callerRole may grant the role named target.
func CanAssignRole(callerRole roles.Role, target string) bool {
	target = roles.NormalizeName(target)
	for _, n := range callerRole.CanAssign {
		if n == roles.Wildcard || roles.NormalizeName(n) == target {
			return true
		}
	}
	return false
}
