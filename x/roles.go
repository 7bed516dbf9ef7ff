package x

import "github.com/iov-one/ferry"

// Role is a privilege level of the migration calls.
type Role int

const (
	RoleNone Role = iota
	RoleCanceller
	RoleManager
	RoleAdmin
	RoleRoot
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleCanceller:
		return "canceller"
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	case RoleRoot:
		return "root"
	}
	return "unknown"
}

// Roles holds the account designated for each role. An empty address leaves
// the role unassigned.
type Roles struct {
	Admin     ferry.Address
	Manager   ferry.Address
	Canceller ferry.Address
}

// RolesOf returns every role the context is authorized for, highest first.
func RolesOf(ctx ferry.Context, auth Authenticator, r Roles) []Role {
	var roles []Role
	if IsRoot(ctx, auth) {
		roles = append(roles, RoleRoot)
	}
	for _, assigned := range []struct {
		role Role
		addr ferry.Address
	}{
		{RoleAdmin, r.Admin},
		{RoleManager, r.Manager},
		{RoleCanceller, r.Canceller},
	} {
		if len(assigned.addr) != 0 && auth.HasAddress(ctx, assigned.addr) {
			roles = append(roles, assigned.role)
		}
	}
	return roles
}

// HasAnyRole returns true if the context holds one of the allowed roles.
func HasAnyRole(ctx ferry.Context, auth Authenticator, r Roles, allowed ...Role) bool {
	for _, have := range RolesOf(ctx, auth, r) {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}
