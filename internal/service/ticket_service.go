package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const maxPageSize = 100

// TicketService coordinates ticket intake, reads and the resolve/close edges.
type TicketService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	actors      repository.ActorRepository
	metrics     *observability.Metrics
	logger      *zap.Logger
	events      publisher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	ActorRepo      repository.ActorRepository
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    string
	Priority    domain.TicketPriority
	Attachments []AttachmentInput
}

// AttachmentInput is a reference to a file already held by external storage.
type AttachmentInput struct {
	FileName string
	FileURL  string
}

// TicketListFilter describes listing filters. Scope is derived from the caller's role.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	Page     int
	PageSize int
}

// TicketDetail is a ticket with its attachments and audit trail.
type TicketDetail struct {
	Ticket      *domain.Ticket
	Attachments []domain.AttachmentReference
	History     []domain.TicketHistory
}

// TicketStats summarizes the system for admins.
type TicketStats struct {
	Tickets      *repository.TicketSummary
	ActorsByRole map[domain.Role]int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := orNop(deps.Logger)
	return &TicketService{
		tickets:     deps.TicketRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		actors:      deps.ActorRepo,
		metrics:     deps.Metrics,
		logger:      logger,
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// CreateTicket opens a ticket on behalf of an employee.
func (s *TicketService) CreateTicket(ctx context.Context, p domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	if p.Role != domain.RoleEmployee {
		return nil, apperrors.NewForbidden("only employees can raise tickets")
	}

	ticket := &domain.Ticket{
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Priority:    domain.TicketPriority(strings.ToUpper(strings.TrimSpace(string(input.Priority)))),
		Status:      domain.TicketStatusOpen,
		CreatorID:   p.ActorID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	missing := []string{}
	if ticket.Subject == "" {
		missing = append(missing, "subject")
	}
	if ticket.Description == "" {
		missing = append(missing, "description")
	}
	if ticket.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be LOW, MEDIUM, HIGH or URGENT", map[string]any{"field": "priority"})
	}

	for i, att := range input.Attachments {
		name, url := strings.TrimSpace(att.FileName), strings.TrimSpace(att.FileURL)
		if name == "" || url == "" {
			return nil, apperrors.NewValidationError("attachment requires file_name and file_url", map[string]any{"index": i})
		}
		ticket.Attachments = append(ticket.Attachments, domain.AttachmentReference{FileName: name, FileURL: url})
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("creator_id", p.ActorID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    principalActor(p),
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket the caller participates in.
func (s *TicketService) GetTicket(ctx context.Context, p domain.Principal, id int64) (*TicketDetail, error) {
	ticket, err := loadTicket(ctx, s.tickets, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(p, ticket, lifecycle.ActionView); err != nil {
		return nil, err
	}

	attachments, err := s.attachments.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	history, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.Attachments = attachments
	return &TicketDetail{Ticket: ticket, Attachments: attachments, History: history}, nil
}

// ListTickets returns the caller's tickets: own for employees, assigned for agents, all
// for admins.
func (s *TicketService) ListTickets(ctx context.Context, p domain.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{Statuses: filter.Statuses}
	switch p.Role {
	case domain.RoleEmployee:
		repoFilter.CreatorID = &p.ActorID
	case domain.RoleAgent:
		repoFilter.AssigneeID = &p.ActorID
	case domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 20
	}
	repoFilter.Limit = pageSize
	repoFilter.Offset = (page - 1) * pageSize

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ResolveTicket moves a ticket to Resolved. Only the assigned agent may do this, from
// Open or InProgress.
func (s *TicketService) ResolveTicket(ctx context.Context, p domain.Principal, id int64) (*domain.Ticket, error) {
	prev, m, err := changeTicket(ctx, s.tickets, p, id, lifecycle.ActionResolve,
		func(current *domain.Ticket) (*repository.Mutation, error) {
			to, err := lifecycle.Next(p, current, lifecycle.EventResolve)
			if err != nil {
				return nil, err
			}
			next := current.Clone()
			next.Status = to
			return &repository.Mutation{
				Next:    next,
				History: []domain.TicketHistory{statusChange(p.ActorID, current.Status, to)},
			}, nil
		})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, p, prev, m.Next)
	return m.Next, nil
}

// CloseTicket closes a ticket and records the satisfaction rating in the same write.
func (s *TicketService) CloseTicket(ctx context.Context, p domain.Principal, id int64, rating int) (*domain.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"field": "rating"})
	}

	prev, m, err := changeTicket(ctx, s.tickets, p, id, lifecycle.ActionClose,
		func(current *domain.Ticket) (*repository.Mutation, error) {
			to, err := lifecycle.Next(p, current, lifecycle.EventClose)
			if err != nil {
				return nil, err
			}
			closedAt := time.Now().UTC()
			next := current.Clone()
			next.Status = to
			next.Rating = &rating
			next.ClosedAt = &closedAt
			return &repository.Mutation{
				Next: next,
				History: []domain.TicketHistory{
					statusChange(p.ActorID, current.Status, to),
					{
						ChangedByID: p.ActorID,
						ChangeType:  domain.ChangeTypeRating,
						NewValue:    map[string]any{"rating": rating},
					},
				},
			}, nil
		})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, p, prev, m.Next)
	return m.Next, nil
}

// Stats aggregates ticket and account counts for admins.
func (s *TicketService) Stats(ctx context.Context, p domain.Principal) (*TicketStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	summary, err := s.tickets.Summarize(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	actors, err := s.actors.List(ctx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	byRole := map[domain.Role]int{}
	for _, actor := range actors {
		byRole[actor.Role]++
	}
	return &TicketStats{Tickets: summary, ActorsByRole: byRole}, nil
}

func (s *TicketService) statusChanged(ctx context.Context, p domain.Principal, prev, next *domain.Ticket) {
	s.metrics.RecordTransition(prev.Status, next.Status)
	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", next.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.String("actor_id", p.ActorID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: next.ID,
		Actor:    principalActor(p),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: prev.Status,
			NewStatus: next.Status,
			Rating:    next.Rating,
		},
	})
}
