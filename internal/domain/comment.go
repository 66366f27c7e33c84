package domain

import "time"

// Comment is an append-only remark on a ticket.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   string
	AuthorRole Role
	Content    string
	CreatedAt  time.Time
}
