package auth

import "strings"

// Role is the crew role assigned to a user within a vessel.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleOwner      Role = "OWNER"
	RoleCaptain    Role = "CAPTAIN"
	RoleOfficer    Role = "OFFICER"
	RoleCrew       Role = "CREW"
)

// Capability is a closed enumeration of the operations the ledger exposes.
// Checks go through PermissionChecker so exhaustiveness lives in one place
// instead of stringly-typed permission names scattered over handlers.
type Capability string

const (
	CapViewExpenses    Capability = "expenses:view"
	CapEditExpenses    Capability = "expenses:edit"
	CapApproveExpenses Capability = "expenses:approve"
	CapDeleteExpenses  Capability = "expenses:delete"
	CapManageCash      Capability = "cash:manage"
	CapViewAudit       Capability = "audit:view"
	CapManageCatalog   Capability = "catalog:manage"
)

// AllCapabilities lists every capability; used for role defaults and grant parsing.
var AllCapabilities = []Capability{
	CapViewExpenses,
	CapEditExpenses,
	CapApproveExpenses,
	CapDeleteExpenses,
	CapManageCash,
	CapViewAudit,
	CapManageCatalog,
}

// Actor carries the caller identity and tenant scope through every service
// operation. It is passed explicitly; nothing is read from ambient state.
type Actor struct {
	UserID   int64
	Role     Role
	Grants   []Capability
	VesselID int64
}

// HasGrant reports whether the actor carries an explicit capability grant,
// ignoring role defaults.
func (a Actor) HasGrant(cap Capability) bool {
	for _, g := range a.Grants {
		if g == cap {
			return true
		}
	}
	return false
}

// ParseCapability maps a stored grant string to a known capability.
func ParseCapability(s string) (Capability, bool) {
	for _, c := range AllCapabilities {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// ParseGrants resolves a comma-separated grant list, dropping anything
// unrecognized.
func ParseGrants(csv string) []Capability {
	if csv == "" {
		return nil
	}
	var out []Capability
	for _, raw := range strings.Split(csv, ",") {
		if c, ok := ParseCapability(strings.TrimSpace(raw)); ok {
			out = append(out, c)
		}
	}
	return out
}

// ParseRole normalizes a role string; unknown roles degrade to CREW so an
// unrecognized value never gains implicit capabilities.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSuperAdmin, RoleOwner, RoleCaptain, RoleOfficer, RoleCrew:
		return Role(s)
	default:
		return RoleCrew
	}
}
