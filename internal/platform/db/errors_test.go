package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentalcare/clinic/pkg/apperr"
)

func TestTranslate(t *testing.T) {
	if Translate(nil, "appointment") != nil {
		t.Error("nil must stay nil")
	}

	err := Translate(fmt.Errorf("scan: %w", pgx.ErrNoRows), "appointment")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = Translate(&pgconn.PgError{Code: "23505", ConstraintName: "branch_code_key"}, "branch")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	other := errors.New("connection reset")
	if Translate(other, "x") != other {
		t.Error("unrelated errors must pass through")
	}
}
