package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const commentPreviewLength = 140

// CommentService appends remarks to tickets and applies the comment-driven transitions.
type CommentService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	metrics  *observability.Metrics
	logger   *zap.Logger
	events   publisher
}

// CommentDependencies bundles repositories.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// PostedComment is the stored comment plus the ticket status after posting.
type PostedComment struct {
	Comment *domain.Comment
	Status  domain.TicketStatus
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := orNop(deps.Logger)
	return &CommentService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		metrics:  deps.Metrics,
		logger:   logger,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// PostComment appends a comment. When the author is the assigned agent and the ticket is
// Open or Resolved, the ticket moves to InProgress in the same write.
func (s *CommentService) PostComment(ctx context.Context, p domain.Principal, ticketID int64, content string) (*PostedComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", map[string]any{"field": "content"})
	}

	prev, m, err := changeTicket(ctx, s.tickets, p, ticketID, lifecycle.ActionComment,
		func(current *domain.Ticket) (*repository.Mutation, error) {
			m := &repository.Mutation{
				Comment: &domain.Comment{
					AuthorID:   p.ActorID,
					AuthorRole: p.Role,
					Content:    content,
				},
			}
			if to, changed := lifecycle.CommentTransition(p, current); changed {
				next := current.Clone()
				next.Status = to
				m.Next = next
				m.History = []domain.TicketHistory{statusChange(p.ActorID, current.Status, to)}
			}
			return m, nil
		})
	if err != nil {
		return nil, err
	}

	status := prev.Status
	if m.Next != nil {
		status = m.Next.Status
		s.metrics.RecordTransition(prev.Status, status)
		s.logger.Info("ticket status changed by comment",
			zap.Int64("ticket_id", ticketID),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(status)),
			zap.String("actor_id", p.ActorID))
		s.events.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticketID,
			Actor:    principalActor(p),
			Payload:  events.TicketStatusChangedPayload{OldStatus: prev.Status, NewStatus: status},
		})
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticketID,
		Actor:    principalActor(p),
		Payload: events.CommentAddedPayload{
			CommentID:   m.Comment.ID,
			AuthorRole:  p.Role,
			Status:      status,
			BodyPreview: stringPreview(content, commentPreviewLength),
		},
	})
	return &PostedComment{Comment: m.Comment, Status: status}, nil
}

// ListComments returns a ticket's comments in creation order.
func (s *CommentService) ListComments(ctx context.Context, p domain.Principal, ticketID int64) ([]domain.Comment, error) {
	ticket, err := loadTicket(ctx, s.tickets, ticketID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(p, ticket, lifecycle.ActionView); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return comments, nil
}
