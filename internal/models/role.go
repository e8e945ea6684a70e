package models

import "fmt"

// Role is the account type fixed at registration.
type Role string

const (
	RoleMusician Role = "musician"
	RoleBand     Role = "band"
	RoleAdmin    Role = "admin"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleMusician, RoleBand, RoleAdmin:
		return true
	}
	return false
}

func (r Role) Label() string {
	switch r {
	case RoleMusician:
		return "Musician"
	case RoleBand:
		return "Band Admin"
	case RoleAdmin:
		return "Administrator"
	}
	return ""
}

// SelfRegistrable reports whether the role can be picked on the register form.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleMusician, RoleBand:
		return true
	case RoleAdmin:
		return false
	}
	return false
}

func (r Role) IsMusician() bool  { return r == RoleMusician }
func (r Role) IsBandAdmin() bool { return r == RoleBand }
func (r Role) IsAdmin() bool     { return r == RoleAdmin }

// LandingPath is where a freshly signed-in user is sent.
func (r Role) LandingPath() string {
	switch r {
	case RoleMusician:
		return "/listings/"
	case RoleBand:
		return "/listings/"
	case RoleAdmin:
		return "/admin/system-logs"
	}
	return "/"
}

// ProfilePath is the profile editor for the role, empty when it has none.
func (r Role) ProfilePath() string {
	switch r {
	case RoleMusician:
		return "/accounts/musician_profile"
	case RoleBand:
		return "/accounts/band_profile"
	case RoleAdmin:
		return ""
	}
	return ""
}
