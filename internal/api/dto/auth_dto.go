package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// JoinRequest is the self-registration payload.
type JoinRequest struct {
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Role         domain.Role `json:"role"`
	ProfileImage *string     `json:"profile_image"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PendingDecisionRequest identifies a queued join request.
type PendingDecisionRequest struct {
	PendingID string `json:"pending_id"`
}

// AuthResponse describes issued tokens.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActorResponse is the public view of an account.
type ActorResponse struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	ProfileImage *string     `json:"profile_image,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// PendingActorResponse is the admin view of a queued join request.
type PendingActorResponse struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// LoginResponse bundles the session with the profile summary.
type LoginResponse struct {
	Auth  AuthResponse  `json:"auth"`
	Actor ActorResponse `json:"actor"`
}

// NewActorResponse maps a domain actor.
func NewActorResponse(actor *domain.Actor) ActorResponse {
	return ActorResponse{
		ID:           actor.ID,
		UserID:       actor.ExternalID,
		Name:         actor.Name,
		Email:        actor.Email,
		Role:         actor.Role,
		ProfileImage: actor.ProfileImage,
		CreatedAt:    actor.CreatedAt,
	}
}

// NewPendingActorResponse maps a queued join request. The password hash is never exposed.
func NewPendingActorResponse(pending *domain.PendingActor) PendingActorResponse {
	return PendingActorResponse{
		ID:          pending.ID,
		UserID:      pending.ExternalID,
		Name:        pending.Name,
		Email:       pending.Email,
		Role:        pending.Role,
		SubmittedAt: pending.SubmittedAt,
	}
}
