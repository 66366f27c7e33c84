package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Attachments []AttachmentRequest   `json:"attachments"`
}

// AttachmentRequest references a file already uploaded to external storage.
type AttachmentRequest struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Rating int `json:"rating"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TicketID int64  `json:"ticket_id"`
	AgentID  string `json:"agent_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         int64                 `json:"id"`
	Subject    string                `json:"subject"`
	Category   string                `json:"category"`
	Priority   domain.TicketPriority `json:"priority"`
	Status     domain.TicketStatus   `json:"status"`
	CreatorID  string                `json:"creator_id"`
	AssigneeID *string               `json:"assignee_id"`
	Rating     *int                  `json:"rating,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	ClosedAt   *time.Time            `json:"closed_at,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Attachments []AttachmentResponse    `json:"attachments"`
	History     []TicketHistoryResponse `json:"history"`
}

// AttachmentResponse is a stored attachment reference.
type AttachmentResponse struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangedByID string                  `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID         int64       `json:"id"`
	TicketID   int64       `json:"ticket_id"`
	AuthorID   string      `json:"author_id"`
	AuthorRole domain.Role `json:"author_role"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

// PostCommentResponse returns the comment with the ticket status after posting.
type PostCommentResponse struct {
	Comment CommentResponse     `json:"comment"`
	Status  domain.TicketStatus `json:"status"`
}

// StatsResponse summarizes the system for admins.
type StatsResponse struct {
	TotalTickets int                           `json:"total_tickets"`
	ByStatus     map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory   map[string]int                `json:"by_category"`
	ByPriority   map[domain.TicketPriority]int `json:"by_priority"`
	ActorsByRole map[domain.Role]int           `json:"actors_by_role"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         t.ID,
		Subject:    t.Subject,
		Category:   t.Category,
		Priority:   t.Priority,
		Status:     t.Status,
		CreatorID:  t.CreatorID,
		AssigneeID: t.AssigneeID,
		Rating:     t.Rating,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ClosedAt:   t.ClosedAt,
	}
}

// NewTicketDetail maps a ticket with attachments and history.
func NewTicketDetail(t *domain.Ticket, attachments []domain.AttachmentReference, history []domain.TicketHistory) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		Description:   t.Description,
		Attachments:   make([]AttachmentResponse, 0, len(attachments)),
		History:       make([]TicketHistoryResponse, 0, len(history)),
	}
	for _, att := range attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{FileName: att.FileName, FileURL: att.FileURL})
	}
	for _, h := range history {
		resp.History = append(resp.History, TicketHistoryResponse{
			ID:          h.ID,
			ChangedByID: h.ChangedByID,
			ChangeType:  h.ChangeType,
			OldValue:    h.OldValue,
			NewValue:    h.NewValue,
			CreatedAt:   h.CreatedAt,
		})
	}
	return resp
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		AuthorRole: c.AuthorRole,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}
