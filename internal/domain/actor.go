package domain

import "time"

// Role enumerates the three actor roles.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Actor is an admitted account. Identity, email and role never change after creation.
type Actor struct {
	ID           string
	ExternalID   string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ProfileImage *string
	CreatedAt    time.Time
}

// PendingActor is a join request waiting for an admin decision. It lives in its own
// arena and can never authenticate.
type PendingActor struct {
	ID           string
	ExternalID   string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ProfileImage *string
	SubmittedAt  time.Time
}
