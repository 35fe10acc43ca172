package models

// Role is the position of a user in the superuser > admin > staff hierarchy
type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSuperuser, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// IsPrivileged reports whether r is admin or superuser
func (r Role) IsPrivileged() bool {
	return r == RoleSuperuser || r == RoleAdmin
}
