package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures list parameters. Nil fields are not filtered on.
type TicketFilter struct {
	CreatorID  *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// Mutation is a single atomic write against one ticket. It succeeds only when the stored
// version still equals ExpectedVersion. Next replaces the ticket state and bumps the
// version; a nil Next leaves the ticket untouched and only appends Comment.
type Mutation struct {
	TicketID        int64
	ExpectedVersion int64
	Next            *domain.Ticket
	Comment         *domain.Comment
	History         []domain.TicketHistory
}

// TicketSummary aggregates ticket counts for reporting.
type TicketSummary struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByCategory map[string]int
	ByPriority map[domain.TicketPriority]int
}

// TicketRepository encapsulates ticket persistence. Apply is the only write path after Create.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Apply(ctx context.Context, m *Mutation) error
	Summarize(ctx context.Context) (*TicketSummary, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, description, category, priority, status, creator_id, assignee_id,
               rating, version, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
            INSERT INTO tickets (subject, description, category, priority, status, creator_id, version)
            VALUES ($1,$2,$3,$4,$5,$6,1)
            RETURNING id, version, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.Subject,
			ticket.Description,
			ticket.Category,
			ticket.Priority,
			ticket.Status,
			ticket.CreatorID,
		).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return translate(err)
		}

		for i := range ticket.Attachments {
			att := &ticket.Attachments[i]
			att.TicketID = ticket.ID
			if err := insertAttachment(ctx, tx, att); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Apply(ctx context.Context, m *Mutation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if m.Next != nil {
			const update = `
                UPDATE tickets SET status=$1, assignee_id=$2, rating=$3, closed_at=$4,
                    version=version+1, updated_at=NOW()
                WHERE id=$5 AND version=$6
                RETURNING version, updated_at`
			err := tx.QueryRow(ctx, update,
				m.Next.Status,
				m.Next.AssigneeID,
				m.Next.Rating,
				m.Next.ClosedAt,
				m.TicketID,
				m.ExpectedVersion,
			).Scan(&m.Next.Version, &m.Next.UpdatedAt)
			if err != nil {
				if errors.Is(translate(err), ErrNotFound) {
					return r.missOrConflict(ctx, tx, m.TicketID)
				}
				return err
			}
		} else {
			var version int64
			err := tx.QueryRow(ctx, `SELECT version FROM tickets WHERE id=$1 FOR SHARE`, m.TicketID).Scan(&version)
			if err != nil {
				return translate(err)
			}
			if version != m.ExpectedVersion {
				return ErrVersionConflict
			}
		}

		if m.Comment != nil {
			m.Comment.TicketID = m.TicketID
			const insert = `
                INSERT INTO comments (ticket_id, author_id, author_role, content)
                VALUES ($1,$2,$3,$4)
                RETURNING id, created_at`
			if err := tx.QueryRow(ctx, insert,
				m.Comment.TicketID,
				m.Comment.AuthorID,
				m.Comment.AuthorRole,
				m.Comment.Content,
			).Scan(&m.Comment.ID, &m.Comment.CreatedAt); err != nil {
				return translate(err)
			}
		}

		for i := range m.History {
			h := &m.History[i]
			h.TicketID = m.TicketID
			if err := insertHistory(ctx, tx, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ticketRepository) missOrConflict(ctx context.Context, tx pgx.Tx, id int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *ticketRepository) Summarize(ctx context.Context) (*TicketSummary, error) {
	summary := &TicketSummary{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[string]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	rows, err := r.pool.Query(ctx, `
        SELECT status, category, priority, COUNT(*)
        FROM tickets GROUP BY status, category, priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status   domain.TicketStatus
			category string
			priority domain.TicketPriority
			count    int
		)
		if err := rows.Scan(&status, &category, &priority, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		summary.ByStatus[status] += count
		summary.ByCategory[category] += count
		summary.ByPriority[priority] += count
	}
	return summary, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.Rating,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
