package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s TicketStatus) Rank() int {
	switch s {
	case TicketStatusOpen:
		return 0
	case TicketStatusInProgress:
		return 1
	case TicketStatusResolved:
		return 2
	case TicketStatusClosed:
		return 3
	}
	return -1
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
// AssigneeID is nil only while Status is OPEN. Version increments on every write.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Category    string
	Priority    TicketPriority
	Status      TicketStatus
	CreatorID   string
	AssigneeID  *string
	Rating      *int
	Version     int64
	Attachments []AttachmentReference
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsAssignedTo reports whether actorID is the ticket's current assignee.
func (t *Ticket) IsAssignedTo(actorID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == actorID
}

// Clone returns a copy safe to mutate without touching t.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		cp.AssigneeID = &id
	}
	if t.Rating != nil {
		r := *t.Rating
		cp.Rating = &r
	}
	if t.ClosedAt != nil {
		c := *t.ClosedAt
		cp.ClosedAt = &c
	}
	cp.Attachments = append([]AttachmentReference(nil), t.Attachments...)
	return &cp
}

// AttachmentReference is an opaque pointer into external file storage,
// fixed at ticket creation.
type AttachmentReference struct {
	ID        int64
	TicketID  int64
	FileName  string
	FileURL   string
	CreatedAt time.Time
}
