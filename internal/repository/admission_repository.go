package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AdmissionRepository manages the queue of join requests awaiting an admin decision.
// Promote and Discard remove the request atomically so each id is decided at most once.
type AdmissionRepository interface {
	Enqueue(ctx context.Context, pending *domain.PendingActor) error
	GetByEmail(ctx context.Context, email string) (*domain.PendingActor, error)
	List(ctx context.Context) ([]domain.PendingActor, error)
	Promote(ctx context.Context, id string) (*domain.Actor, error)
	Discard(ctx context.Context, id string) (*domain.PendingActor, error)
}

type admissionRepository struct {
	pool *pgxpool.Pool
}

// NewAdmissionRepository returns a Postgres-backed implementation.
func NewAdmissionRepository(pool *pgxpool.Pool) AdmissionRepository {
	return &admissionRepository{pool: pool}
}

const pendingColumns = `id, external_id, name, email, password_hash, role, profile_image, submitted_at`

func (r *admissionRepository) Enqueue(ctx context.Context, pending *domain.PendingActor) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// serialize identity checks across both arenas
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pending.Email); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM actors WHERE email=$1 OR external_id=$2)`,
			pending.Email, pending.ExternalID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrDuplicate
		}

		const query = `
            INSERT INTO pending_actors (external_id, name, email, password_hash, role, profile_image)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, submitted_at`
		err := tx.QueryRow(ctx, query,
			pending.ExternalID,
			pending.Name,
			pending.Email,
			pending.PasswordHash,
			pending.Role,
			pending.ProfileImage,
		).Scan(&pending.ID, &pending.SubmittedAt)
		return translate(err)
	})
}

func (r *admissionRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingActor, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_actors WHERE email=$1`
	return scanPending(r.pool.QueryRow(ctx, query, email))
}

func (r *admissionRepository) List(ctx context.Context) ([]domain.PendingActor, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_actors ORDER BY submitted_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PendingActor
	for rows.Next() {
		pending, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *pending)
	}
	return result, rows.Err()
}

func (r *admissionRepository) Promote(ctx context.Context, id string) (*domain.Actor, error) {
	var actor *domain.Actor
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		pending, err := scanPending(tx.QueryRow(ctx,
			`DELETE FROM pending_actors WHERE id=$1 RETURNING `+pendingColumns, id))
		if err != nil {
			return err
		}

		actor = &domain.Actor{
			ExternalID:   pending.ExternalID,
			Name:         pending.Name,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			Role:         pending.Role,
			ProfileImage: pending.ProfileImage,
		}
		const insert = `
            INSERT INTO actors (external_id, name, email, password_hash, role, profile_image)
            VALUES ($1,$2,$3,$4,$5,$6)
            RETURNING id, created_at`
		err = tx.QueryRow(ctx, insert,
			actor.ExternalID,
			actor.Name,
			actor.Email,
			actor.PasswordHash,
			actor.Role,
			actor.ProfileImage,
		).Scan(&actor.ID, &actor.CreatedAt)
		if err != nil {
			return fmt.Errorf("promote pending actor: %w", translate(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actor, nil
}

func (r *admissionRepository) Discard(ctx context.Context, id string) (*domain.PendingActor, error) {
	return scanPending(r.pool.QueryRow(ctx,
		`DELETE FROM pending_actors WHERE id=$1 RETURNING `+pendingColumns, id))
}

func scanPending(row pgx.Row) (*domain.PendingActor, error) {
	var pending domain.PendingActor
	if err := row.Scan(
		&pending.ID,
		&pending.ExternalID,
		&pending.Name,
		&pending.Email,
		&pending.PasswordHash,
		&pending.Role,
		&pending.ProfileImage,
		&pending.SubmittedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &pending, nil
}
