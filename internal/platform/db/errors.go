package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentalcare/clinic/pkg/apperr"
)

const uniqueViolation = "23505"

// Translate maps driver errors onto the apperr taxonomy: a missing row
// becomes a not-found for entity and a unique violation becomes a conflict.
// Other errors pass through unchanged.
func Translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict(entity + " " + pgErr.ConstraintName)
	}
	return err
}
