package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGStore keeps counters in the tenant's id_sequence table.
type PGStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

func (s *PGStore) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

func (s *PGStore) Next(ctx context.Context, kind Kind, floor FloorFunc) (int64, error) {
	q := s.conn(ctx)

	var n int64
	err := q.QueryRow(ctx, `
		UPDATE id_sequence SET last_value = last_value + 1, updated_at = NOW()
		WHERE kind = $1
		RETURNING last_value`, string(kind)).Scan(&n)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// First allocation for this kind. A concurrent creator falls into the
	// conflict branch and increments the row the other one inserted.
	f, err := floor(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed counter: %w", err)
	}
	err = q.QueryRow(ctx, `
		INSERT INTO id_sequence (kind, last_value) VALUES ($1, $2 + 1)
		ON CONFLICT (kind) DO UPDATE
			SET last_value = id_sequence.last_value + 1, updated_at = NOW()
		RETURNING last_value`, string(kind), f).Scan(&n)
	return n, err
}

func (s *PGStore) Current(ctx context.Context, kind Kind) (int64, bool, error) {
	var n int64
	err := s.conn(ctx).QueryRow(ctx, `SELECT last_value FROM id_sequence WHERE kind = $1`, string(kind)).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// PGFloors returns the seeding queries for every kind, reading the highest
// identifier already stored in the tenant's tables.
//
// UHID and account ids follow the most recently created record, appointment
// numbers take the numeric maximum. Both rules mirror how these identifiers
// were assigned before the counter table existed.
func PGFloors(pool *pgxpool.Pool) map[Kind]FloorFunc {
	s := &PGStore{pool: pool}
	latest := func(query string) FloorFunc {
		return func(ctx context.Context) (int64, error) {
			var id string
			err := s.conn(ctx).QueryRow(ctx, query).Scan(&id)
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, nil
			}
			if err != nil {
				return 0, err
			}
			return ParseSuffix(id), nil
		}
	}
	highest := func(query string) FloorFunc {
		return func(ctx context.Context) (int64, error) {
			var n int64
			if err := s.conn(ctx).QueryRow(ctx, query).Scan(&n); err != nil {
				return 0, err
			}
			return n, nil
		}
	}
	return map[Kind]FloorFunc{
		KindUHID: latest(`SELECT uhid FROM appointment
			WHERE uhid <> '' ORDER BY created_at DESC LIMIT 1`),
		KindAppID: highest(`SELECT COALESCE(MAX(NULLIF(regexp_replace(app_id, '\D', '', 'g'), '')::bigint), 0)
			FROM appointment`),
		KindAccountID: latest(`SELECT account_id FROM app_user
			WHERE account_id <> '' ORDER BY created_at DESC LIMIT 1`),
		KindReceipt: highest(`SELECT COALESCE(MAX(NULLIF(regexp_replace(receipt_number, '\D', '', 'g'), '')::bigint), 0)
			FROM receipt`),
		KindInvoice: highest(`SELECT COALESCE(MAX(NULLIF(regexp_replace(invoice_number, '\D', '', 'g'), '')::bigint), 0)
			FROM invoice`),
	}
}
