package domain

import "time"

// Role enumerates the roles a dashboard or service caller can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePorter  Role = "porter"
	RoleService Role = "service"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePorter, RoleService:
		return true
	default:
		return false
	}
}

// Elevated reports whether r is the administrative role.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// Porter models a maintenance porter or administrator.
type Porter struct {
	ID           string
	FullName     string
	Email        *string
	Phone        *string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
