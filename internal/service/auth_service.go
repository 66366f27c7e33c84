package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthService coordinates login, session verification and credential changes.
type AuthService struct {
	actors     repository.ActorRepository
	admissions repository.AdmissionRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	ActorRepo     repository.ActorRepository
	AdmissionRepo repository.AdmissionRepository
	Logger        *zap.Logger
}

// Session is the outcome of a successful login.
type Session struct {
	Actor     *domain.Actor
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		actors:     deps.ActorRepo,
		admissions: deps.AdmissionRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     orNop(deps.Logger),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates an admitted actor. Identities still waiting in the admission queue
// get PendingApproval, unknown identities NotFound.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	actor, err := s.actors.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		if _, pendingErr := s.admissions.GetByEmail(ctx, email); pendingErr == nil {
			return nil, apperrors.NewPendingApproval()
		} else if !errors.Is(pendingErr, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(pendingErr)
		}
		return nil, apperrors.NewNotFound("account", nil)
	default:
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(actor.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}

	if auth.NeedsRehash(actor.PasswordHash, s.bcryptCost) {
		s.rehash(ctx, actor, password)
	}

	token, exp, err := s.tokenMgr.GenerateToken(actor)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Debug("login succeeded", zap.String("actor_id", actor.ID), zap.String("role", string(actor.Role)))
	return &Session{Actor: actor, Token: token, ExpiresAt: exp}, nil
}

// Authenticate verifies a session token and yields the caller identity. It is
// role-agnostic; callers check roles themselves.
func (s *AuthService) Authenticate(token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, apperrors.NewUnauthorized("missing token")
	}
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return domain.Principal{}, apperrors.NewUnauthorized("invalid or expired token")
	}
	return claims.Principal(), nil
}

// Profile returns the caller's own account.
func (s *AuthService) Profile(ctx context.Context, p domain.Principal) (*domain.Actor, error) {
	actor, err := s.actors.GetByID(ctx, p.ActorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("account", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return actor, nil
}

// ChangePassword replaces the caller's secret after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, p domain.Principal, current, next string) error {
	if current == "" || next == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}
	actor, err := s.Profile(ctx, p)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(actor.PasswordHash, current); err != nil {
		return apperrors.NewInvalidCredentials()
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return apperrors.NewValidationError("new_password is too long", map[string]any{"max_bytes": auth.MaxPasswordBytes})
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.actors.UpdatePasswordHash(ctx, actor.ID, hash); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("password changed", zap.String("actor_id", actor.ID))
	return nil
}

// rehash upgrades a stored hash to the configured cost. Failures only cost a log line.
func (s *AuthService) rehash(ctx context.Context, actor *domain.Actor, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err == nil {
		err = s.actors.UpdatePasswordHash(ctx, actor.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("actor_id", actor.ID), zap.Error(err))
		return
	}
	actor.PasswordHash = hash
}

// EnsureBootstrapAdmin creates the configured admin when no actor holds its email yet.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if !cfg.Enabled() {
		return nil
	}
	email := normalizeEmail(cfg.AdminEmail)
	if _, err := s.actors.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.Actor{
		ExternalID:   cfg.AdminExternalID,
		Name:         cfg.AdminName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.actors.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("actor_id", admin.ID), zap.String("email", admin.Email))
	return nil
}
