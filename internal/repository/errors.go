package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique identity already exists.
	ErrDuplicate = errors.New("duplicate identity")
	// ErrVersionConflict is returned when a ticket changed after it was read.
	ErrVersionConflict = errors.New("version conflict")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case invalidTextRepresentation:
			// malformed identifiers cannot match any row
			return ErrNotFound
		}
	}
	return err
}
