package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ActorRepository defines persistence access for admitted actors.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Actor, error)
	List(ctx context.Context, role *domain.Role) ([]domain.Actor, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository returns a Postgres-backed implementation.
func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &actorRepository{pool: pool}
}

const actorColumns = `id, external_id, name, email, password_hash, role, profile_image, created_at`

func (r *actorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	const query = `
        INSERT INTO actors (external_id, name, email, password_hash, role, profile_image)
        SELECT $1, $2, $3, $4, $5, $6
        WHERE NOT EXISTS (SELECT 1 FROM pending_actors WHERE email=$3 OR external_id=$1)
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		actor.ExternalID,
		actor.Name,
		actor.Email,
		actor.PasswordHash,
		actor.Role,
		actor.ProfileImage,
	).Scan(&actor.ID, &actor.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// guarded insert produced nothing: identity is queued for admission
		return ErrDuplicate
	}
	return translate(err)
}

func (r *actorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id=$1`
	return scanActor(r.pool.QueryRow(ctx, query, id))
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE email=$1`
	return scanActor(r.pool.QueryRow(ctx, query, email))
}

func (r *actorRepository) List(ctx context.Context, role *domain.Role) ([]domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors`
	args := []any{}
	if role != nil {
		args = append(args, *role)
		query += fmt.Sprintf(" WHERE role=$%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *actor)
	}
	return result, rows.Err()
}

func (r *actorRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE actors SET password_hash=$1 WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanActor(row pgx.Row) (*domain.Actor, error) {
	var actor domain.Actor
	if err := row.Scan(
		&actor.ID,
		&actor.ExternalID,
		&actor.Name,
		&actor.Email,
		&actor.PasswordHash,
		&actor.Role,
		&actor.ProfileImage,
		&actor.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &actor, nil
}
