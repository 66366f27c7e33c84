package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type actorRepository struct {
	s *Store
}

func (r *actorRepository) Create(_ context.Context, actor *domain.Actor) error {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	if r.s.identityTaken(actor.Email, actor.ExternalID) {
		return repository.ErrDuplicate
	}
	actor.ID = uuid.NewString()
	actor.CreatedAt = time.Now().UTC()
	cp := *actor
	r.s.actors[actor.ID] = &cp
	return nil
}

func (r *actorRepository) GetByID(_ context.Context, id string) (*domain.Actor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	actor, ok := r.s.actors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *actor
	return &cp, nil
}

func (r *actorRepository) GetByEmail(_ context.Context, email string) (*domain.Actor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	for _, actor := range r.s.actors {
		if actor.Email == email {
			cp := *actor
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *actorRepository) List(_ context.Context, role *domain.Role) ([]domain.Actor, error) {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	var result []domain.Actor
	for _, actor := range r.s.actors {
		if role != nil && actor.Role != *role {
			continue
		}
		result = append(result, *actor)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *actorRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.s.identityMu.Lock()
	defer r.s.identityMu.Unlock()

	actor, ok := r.s.actors[id]
	if !ok {
		return repository.ErrNotFound
	}
	actor.PasswordHash = hash
	return nil
}

// identityTaken must be called with identityMu held.
func (s *Store) identityTaken(email, externalID string) bool {
	for _, actor := range s.actors {
		if actor.Email == email || actor.ExternalID == externalID {
			return true
		}
	}
	for _, pending := range s.pending {
		if pending.Email == email || pending.ExternalID == externalID {
			return true
		}
	}
	return false
}
