package domain

import "time"

// Principal is the verified caller identity extracted from a session token.
// Every domain operation receives it explicitly.
type Principal struct {
	ActorID   string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// Is reports whether the principal carries the given role.
func (p Principal) Is(role Role) bool {
	return p.Role == role
}
