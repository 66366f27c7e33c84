package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type admissionRepository struct {
	s *Store
}

func (r *admissionRepository) Enqueue(_ context.Context, pending *domain.PendingActor) error {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	if r.s.identityTaken(pending.Email, pending.ExternalID) {
		return repository.ErrDuplicate
	}
	pending.ID = uuid.NewString()
	pending.SubmittedAt = time.Now().UTC()
	cp := *pending
	r.s.pending[pending.ID] = &cp
	return nil
}

func (r *admissionRepository) GetByEmail(_ context.Context, email string) (*domain.PendingActor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	for _, pending := range r.s.pending {
		if pending.Email == email {
			cp := *pending
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *admissionRepository) List(_ context.Context) ([]domain.PendingActor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	result := make([]domain.PendingActor, 0, len(r.s.pending))
	for _, pending := range r.s.pending {
		result = append(result, *pending)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})
	return result, nil
}

func (r *admissionRepository) Promote(_ context.Context, id string) (*domain.Actor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	pending, ok := r.s.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.pending, id)

	actor := &domain.Actor{
		ID:           uuid.NewString(),
		ExternalID:   pending.ExternalID,
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         pending.Role,
		ProfileImage: pending.ProfileImage,
		CreatedAt:    time.Now().UTC(),
	}
	stored := *actor
	r.s.actors[actor.ID] = &stored
	return actor, nil
}

func (r *admissionRepository) Discard(_ context.Context, id string) (*domain.PendingActor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	pending, ok := r.s.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.pending, id)
	return pending, nil
}
