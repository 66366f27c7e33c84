package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set groups every repository the services depend on.
type Set struct {
	Actors      ActorRepository
	Admissions  AdmissionRepository
	Tickets     TicketRepository
	Comments    CommentRepository
	History     TicketHistoryRepository
	Attachments AttachmentRepository
}

// NewPostgresSet builds the pgx-backed repositories over pool.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Actors:      NewActorRepository(pool),
		Admissions:  NewAdmissionRepository(pool),
		Tickets:     NewTicketRepository(pool),
		Comments:    NewCommentRepository(pool),
		History:     NewTicketHistoryRepository(pool),
		Attachments: NewAttachmentRepository(pool),
	}
}
