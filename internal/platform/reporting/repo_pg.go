package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// bounds appends created_at conditions for the non-nil bounds.
func bounds(where []string, args []interface{}, from, until *time.Time) ([]string, []interface{}) {
	if from != nil {
		args = append(args, *from)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if until != nil {
		args = append(args, *until)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return where, args
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func (r *PGRepository) CountAppointments(ctx context.Context, f Filter) (int64, error) {
	var where []string
	var args []interface{}
	if f.NewOnly {
		where = append(where, "appointment_type = 'New'")
	}
	where, args = bounds(where, args, f.From, f.Until)

	var n int64
	err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM appointment"+whereClause(where), args...).Scan(&n)
	return n, err
}

func (r *PGRepository) PatientTimes(ctx context.Context, w Window) ([]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT created_at FROM appointment
		WHERE appointment_type = 'New' AND created_at >= $1 AND created_at <= $2`,
		w.From, w.Until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var revenueColumn = map[Source]string{
	SourceReceipts: "amount",
	SourceInvoices: "total",
}

func (r *PGRepository) Revenue(ctx context.Context, source Source, from, until *time.Time) (float64, error) {
	col, ok := revenueColumn[source]
	if !ok {
		return 0, fmt.Errorf("unknown revenue source %q", source)
	}
	where, args := bounds(nil, nil, from, until)

	var sum float64
	query := fmt.Sprintf("SELECT COALESCE(SUM(%s), 0)::float8 FROM %s%s", col, string(source), whereClause(where))
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&sum)
	return sum, err
}
