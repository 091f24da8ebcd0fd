package auth

type PermissionChecker interface {
	Has(actor Actor, cap Capability) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

// Has applies role defaults first, then explicit grants. SUPER_ADMIN, OWNER and
// CAPTAIN hold every capability implicitly; everyone else needs a grant.
func (c *DefaultPermissionChecker) Has(actor Actor, cap Capability) bool {
	if roleHasDefault(actor.Role, cap) {
		return true
	}
	return actor.HasGrant(cap)
}

func roleHasDefault(role Role, cap Capability) bool {
	switch role {
	case RoleSuperAdmin, RoleOwner, RoleCaptain:
		return true
	case RoleOfficer:
		// officers can see the books but cannot move money or approve
		return cap == CapViewExpenses || cap == CapViewAudit
	default:
		return false
	}
}
