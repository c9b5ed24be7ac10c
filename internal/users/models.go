package users

// Role is carried in the access token's "role" claim.
type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// CanOrganize reports whether the role may create events and issue waitlist tickets.
func (r Role) CanOrganize() bool {
	return r == RoleOrganizer || r == RoleAdmin
}
