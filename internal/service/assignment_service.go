package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AssignmentService binds agents to tickets.
type AssignmentService struct {
	tickets repository.TicketRepository
	actors  repository.ActorRepository
	logger  *zap.Logger
	events  publisher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	ActorRepo  repository.ActorRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignmentService constructs service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := orNop(deps.Logger)
	return &AssignmentService{
		tickets: deps.TicketRepo,
		actors:  deps.ActorRepo,
		logger:  logger,
		events:  publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// AssignTicket points a ticket at an agent, replacing any previous assignee. The status is
// left as is.
func (s *AssignmentService) AssignTicket(ctx context.Context, p domain.Principal, ticketID int64, agentID string) (*domain.Ticket, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	agent, err := s.actors.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	prev, m, err := changeTicket(ctx, s.tickets, p, ticketID, lifecycle.ActionAssign,
		func(current *domain.Ticket) (*repository.Mutation, error) {
			if agent.Role != domain.RoleAgent {
				return nil, apperrors.NewRoleMismatch(map[string]any{"agent_id": agentID, "role": agent.Role})
			}
			next := current.Clone()
			next.AssigneeID = &agent.ID
			return &repository.Mutation{
				Next: next,
				History: []domain.TicketHistory{{
					ChangedByID: p.ActorID,
					ChangeType:  domain.ChangeTypeAssignee,
					OldValue:    map[string]any{"assignee_id": current.AssigneeID},
					NewValue:    map[string]any{"assignee_id": agent.ID},
				}},
			}, nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket assigned",
		zap.Int64("ticket_id", ticketID),
		zap.String("agent_id", agent.ID),
		zap.String("assigned_by", p.ActorID))
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		Actor:    principalActor(p),
		Payload:  events.TicketAssignedPayload{PreviousAgentID: prev.AssigneeID, AgentID: agent.ID},
	})
	return m.Next, nil
}

// ListAgents returns the pool of actors tickets can be assigned to.
func (s *AssignmentService) ListAgents(ctx context.Context, p domain.Principal) ([]domain.Actor, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	role := domain.RoleAgent
	agents, err := s.actors.List(ctx, &role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return agents, nil
}
