package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentRepository reads attachment references. They are written with the ticket.
type AttachmentRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func insertAttachment(ctx context.Context, tx pgx.Tx, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO attachments (ticket_id, file_name, file_url)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.FileName,
		attachment.FileURL,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, ticket_id, file_name, file_url, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var attachment domain.AttachmentReference
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.FileName,
			&attachment.FileURL,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
