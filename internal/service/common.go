package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// publisher emits domain events after a write has committed. Dispatch failures are
// logged and never fail the request that produced the event.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("event dispatch failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func principalActor(p domain.Principal) events.Actor {
	return events.Actor{ID: p.ActorID, Role: p.Role}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// loadTicket fetches a ticket and maps a miss to NotFound.
func loadTicket(ctx context.Context, tickets repository.TicketRepository, id int64) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

// changeTicket runs the single write path for an existing ticket: load, authorize,
// build the mutation from the observed state and apply it conditioned on that state's
// version. When the version moved, the fresh state is re-authorized so a caller racing
// an edge that is no longer legal sees IllegalTransition; otherwise the conflict is
// reported as stale.
func changeTicket(
	ctx context.Context,
	tickets repository.TicketRepository,
	p domain.Principal,
	id int64,
	action lifecycle.Action,
	build func(current *domain.Ticket) (*repository.Mutation, error),
) (*domain.Ticket, *repository.Mutation, error) {
	current, err := loadTicket(ctx, tickets, id)
	if err != nil {
		return nil, nil, err
	}
	if err := lifecycle.Authorize(p, current, action); err != nil {
		return nil, nil, err
	}

	m, err := build(current)
	if err != nil {
		return nil, nil, err
	}
	m.TicketID = current.ID
	m.ExpectedVersion = current.Version

	err = tickets.Apply(ctx, m)
	switch {
	case err == nil:
		return current, m, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	case errors.Is(err, repository.ErrVersionConflict):
		if fresh, loadErr := tickets.GetByID(ctx, id); loadErr == nil {
			if authErr := lifecycle.Authorize(p, fresh, action); authErr != nil {
				return nil, nil, authErr
			}
		}
		return nil, nil, apperrors.NewStaleTicket(id)
	default:
		return nil, nil, apperrors.NewInternalError(err)
	}
}

func statusChange(actorID string, from, to domain.TicketStatus) domain.TicketHistory {
	return domain.TicketHistory{
		ChangedByID: actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": from},
		NewValue:    map[string]any{"status": to},
	}
}

func stringPreview(body string, max int) string {
	trimmed := strings.TrimSpace(body)
	runes := []rune(trimmed)
	if len(runes) <= max {
		return trimmed
	}
	return string(runes[:max]) + "..."
}
