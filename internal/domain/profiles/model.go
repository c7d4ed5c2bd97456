package profiles

import "time"

// Role define qué puede hacer un usuario en la app.
// @Enum member, organization, admin
type Role string

const (
	RoleMember       Role = "member"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleOrganization, RoleAdmin:
		return true
	}
	return false
}

// Profile es el perfil público de un usuario. ID = id de auth (Supabase).
type Profile struct {
	ID    string
	Email string

	DisplayName string
	Bio         string
	AvatarURL   string

	Role Role
	// Solo para cuentas de organización (refugios, grupos de voluntarios).
	OrganizationName string

	Suspended bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
