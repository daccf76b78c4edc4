package domain

// UserRole is an ordered security level. Lower index = higher privilege.
type UserRole string

const (
	RoleSuperAdmin UserRole = "superadmin"
	RoleAdmin      UserRole = "admin"
	RoleModerator  UserRole = "moderator"
	RoleSender     UserRole = "sender"
	RoleUser       UserRole = "user"
	RoleGuest      UserRole = "guest"
)

// roleHierarchy orders roles from most to least privileged.
var roleHierarchy = []UserRole{
	RoleSuperAdmin,
	RoleAdmin,
	RoleModerator,
	RoleSender,
	RoleUser,
	RoleGuest,
}

func securityLevel(role UserRole) int {
	for i, r := range roleHierarchy {
		if r == role {
			return i
		}
	}
	return -1
}

// HasAtLeastSecurityLevel reports whether role is at least as privileged as
// minimum. Unknown roles never pass.
func HasAtLeastSecurityLevel(role, minimum UserRole) bool {
	actual := securityLevel(role)
	required := securityLevel(minimum)
	if actual < 0 || required < 0 {
		return false
	}
	return actual <= required
}

// ValidRole reports whether role is part of the hierarchy.
func ValidRole(role UserRole) bool {
	return securityLevel(role) >= 0
}
