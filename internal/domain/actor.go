package domain

// Role enumerates the actor roles supplied by the identity provider.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTech    Role = "tech"
	RoleCompany Role = "company"
)

// Actor identifies the authenticated caller of a mutating operation. The
// identity provider is trusted for both fields; the core only stamps and
// authorizes with them.
type Actor struct {
	ID        string
	Role      Role
	CompanyID string
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTech, RoleCompany:
		return true
	}
	return false
}
