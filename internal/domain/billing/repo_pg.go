package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/clinic/internal/platform/db"
	"github.com/dentalcare/clinic/pkg/apperr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

func whereFor(f ListFilter) (string, []interface{}, int) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.AppointmentID != nil {
		where += fmt.Sprintf(` AND appointment_id = $%d`, idx)
		args = append(args, *f.AppointmentID)
		idx++
	}
	if f.UHID != "" {
		where += fmt.Sprintf(` AND uhid = $%d`, idx)
		args = append(args, f.UHID)
		idx++
	}
	return where, args, idx
}

// =========== Receipt Repository ===========

type receiptRepoPG struct{ pool *pgxpool.Pool }

func NewReceiptRepoPG(pool *pgxpool.Pool) ReceiptRepository { return &receiptRepoPG{pool: pool} }

const receiptCols = `id, appointment_id, receipt_number, uhid, patient_name, amount, payment_mode,
	items, notes, created_at`

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var r Receipt
	err := row.Scan(&r.ID, &r.AppointmentID, &r.ReceiptNumber, &r.UHID, &r.PatientName, &r.Amount,
		&r.PaymentMode, &r.Items, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, db.Translate(err, "receipt")
	}
	return &r, nil
}

func (r *receiptRepoPG) Create(ctx context.Context, rc *Receipt) error {
	rc.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO receipt (id, appointment_id, receipt_number, uhid, patient_name, amount,
			payment_mode, items, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		rc.ID, rc.AppointmentID, rc.ReceiptNumber, rc.UHID, rc.PatientName, rc.Amount,
		rc.PaymentMode, rc.Items, rc.Notes).Scan(&rc.CreatedAt)
	return db.Translate(err, "receipt")
}

func (r *receiptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	return scanReceipt(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+receiptCols+` FROM receipt WHERE id = $1`, id))
}

func (r *receiptRepoPG) GetByNumber(ctx context.Context, number string) (*Receipt, error) {
	return scanReceipt(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+receiptCols+` FROM receipt WHERE receipt_number = $1`, number))
}

func (r *receiptRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM receipt WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("receipt")
	}
	return nil
}

func (r *receiptRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Receipt, int, error) {
	q := connFor(ctx, r.pool)
	where, args, idx := whereFor(f)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM receipt`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + receiptCols + ` FROM receipt` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Receipt{}
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rc)
	}
	return items, total, rows.Err()
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const invoiceCols = `id, appointment_id, invoice_number, uhid, patient_name, items, subtotal,
	discount, tax, total, notes, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.AppointmentID, &inv.InvoiceNumber, &inv.UHID, &inv.PatientName,
		&inv.Items, &inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Notes, &inv.CreatedAt)
	if err != nil {
		return nil, db.Translate(err, "invoice")
	}
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO invoice (id, appointment_id, invoice_number, uhid, patient_name, items,
			subtotal, discount, tax, total, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at`,
		inv.ID, inv.AppointmentID, inv.InvoiceNumber, inv.UHID, inv.PatientName, inv.Items,
		inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.Notes).Scan(&inv.CreatedAt)
	return db.Translate(err, "invoice")
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *invoiceRepoPG) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return scanInvoice(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE invoice_number = $1`, number))
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice")
	}
	return nil
}

func (r *invoiceRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	q := connFor(ctx, r.pool)
	where, args, idx := whereFor(f)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM invoice`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + invoiceCols + ` FROM invoice` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}
