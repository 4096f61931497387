package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = errors.New("db: not found")
	ErrConflict   = errors.New("db: conflict")
	ErrForeignKey = errors.New("db: foreign key violation")
	ErrCheck      = errors.New("db: check violation")
)

// MapError converts pgx errors into the sentinels above. Context errors pass through.
func MapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %v: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s %v: %w", entity, id, ErrConflict)
		case "23503":
			return fmt.Errorf("%s %v: %w", entity, id, ErrForeignKey)
		case "23514":
			return fmt.Errorf("%s %v: %w", entity, id, ErrCheck)
		}
	}
	return fmt.Errorf("%s %v: %w", entity, id, err)
}
