package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdmissionService runs the admin-gated join workflow.
type AdmissionService struct {
	admissions repository.AdmissionRepository
	bcryptCost int
	metrics    *observability.Metrics
	logger     *zap.Logger
	events     publisher
}

// AdmissionDependencies bundles collaborators for the admission service.
type AdmissionDependencies struct {
	AdmissionRepo repository.AdmissionRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// JoinRequestInput carries the self-registration form.
type JoinRequestInput struct {
	ExternalID   string
	Name         string
	Email        string
	Password     string
	Role         domain.Role
	ProfileImage *string
}

// NewAdmissionService constructs the service.
func NewAdmissionService(cfg config.AuthConfig, deps AdmissionDependencies) *AdmissionService {
	logger := orNop(deps.Logger)
	return &AdmissionService{
		admissions: deps.AdmissionRepo,
		bcryptCost: cfg.BcryptCost,
		metrics:    deps.Metrics,
		logger:     logger,
		events:     publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// SubmitJoinRequest queues a new account for admin approval. The secret is hashed before
// it is stored; the plaintext is never kept.
func (s *AdmissionService) SubmitJoinRequest(ctx context.Context, input JoinRequestInput) (*domain.PendingActor, error) {
	input.ExternalID = strings.TrimSpace(input.ExternalID)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.Role = domain.Role(strings.ToUpper(strings.TrimSpace(string(input.Role))))

	missing := []string{}
	if input.ExternalID == "" {
		missing = append(missing, "user_id")
	}
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if input.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, apperrors.NewValidationError("email is not a valid address", map[string]any{"field": "email"})
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("role must be EMPLOYEE, AGENT or ADMIN", map[string]any{"field": "role"})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password is too long", map[string]any{"max_bytes": auth.MaxPasswordBytes})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	pending := &domain.PendingActor{
		ExternalID:   input.ExternalID,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		ProfileImage: input.ProfileImage,
	}
	if err := s.admissions.Enqueue(ctx, pending); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicateIdentity(map[string]any{"email": input.Email, "user_id": input.ExternalID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("join request queued", zap.String("pending_id", pending.ID), zap.String("role", string(pending.Role)))
	return pending, nil
}

// ListPending returns the admission queue, oldest first.
func (s *AdmissionService) ListPending(ctx context.Context, p domain.Principal) ([]domain.PendingActor, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	pending, err := s.admissions.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return pending, nil
}

// Approve promotes a pending actor into the actor arena. Each pending id is decided once;
// later calls observe NotFound.
func (s *AdmissionService) Approve(ctx context.Context, p domain.Principal, pendingID string) (*domain.Actor, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	actor, err := s.admissions.Promote(ctx, pendingID)
	if err != nil {
		return nil, admissionError(err, pendingID)
	}

	s.metrics.RecordAdmission("approved")
	s.logger.Info("join request approved",
		zap.String("pending_id", pendingID),
		zap.String("actor_id", actor.ID),
		zap.String("approved_by", p.ActorID))
	s.events.publish(ctx, events.Event{
		Type:    events.EventActorAdmitted,
		Actor:   principalActor(p),
		Payload: events.AdmissionPayload{Email: actor.Email, Role: actor.Role},
	})
	return actor, nil
}

// Reject discards a pending actor. Each pending id is decided once.
func (s *AdmissionService) Reject(ctx context.Context, p domain.Principal, pendingID string) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	pending, err := s.admissions.Discard(ctx, pendingID)
	if err != nil {
		return admissionError(err, pendingID)
	}

	s.metrics.RecordAdmission("rejected")
	s.logger.Info("join request rejected", zap.String("pending_id", pendingID), zap.String("rejected_by", p.ActorID))
	s.events.publish(ctx, events.Event{
		Type:    events.EventJoinRejected,
		Actor:   principalActor(p),
		Payload: events.AdmissionPayload{Email: pending.Email, Role: pending.Role},
	})
	return nil
}

func admissionError(err error, pendingID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("pending admission", map[string]any{"pending_id": pendingID})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicateIdentity(map[string]any{"pending_id": pendingID})
	}
	return apperrors.NewInternalError(err)
}

func requireAdmin(p domain.Principal) error {
	if p.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
