package auth

import (
	"errors"
	"strings"
	"time"
)

// Role is the single role an identity holds.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleHospital  Role = "hospital"
	RoleCaretaker Role = "caretaker"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RolePatient, RoleDoctor, RoleHospital, RoleCaretaker}

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleHospital, RoleCaretaker:
		return true
	}
	return false
}

// DashboardPath is where a role lands after login or registration.
func DashboardPath(r Role) string {
	if !r.Valid() {
		return "/"
	}
	return "/" + string(r)
}

// Identity is the authenticated user as seen by the application.
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
