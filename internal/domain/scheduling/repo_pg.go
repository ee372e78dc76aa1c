package scheduling

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

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, app_id, uhid, appointment_type, branch_id, dentist_id,
	patient_name, gender, age, date_of_birth, phone, email, address,
	blood_pressure, pulse, temperature, weight, height, spo2,
	appointment_date, time_slot, chief_complaint, status,
	consultation_fee, payment_mode, payment_status,
	receipts, invoices, receipt_generate, invoice_generate, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppID, &a.UHID, &a.AppointmentType, &a.BranchID, &a.DentistID,
		&a.PatientName, &a.Gender, &a.Age, &a.DateOfBirth, &a.Phone, &a.Email, &a.Address,
		&a.BloodPressure, &a.Pulse, &a.Temperature, &a.Weight, &a.Height, &a.SpO2,
		&a.AppointmentDate, &a.TimeSlot, &a.ChiefComplaint, &a.Status,
		&a.ConsultationFee, &a.PaymentMode, &a.PaymentStatus,
		&a.Receipts, &a.Invoices, &a.ReceiptGenerate, &a.InvoiceGenerate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "appointment")
	}
	if a.Receipts == nil {
		a.Receipts = []uuid.UUID{}
	}
	if a.Invoices == nil {
		a.Invoices = []uuid.UUID{}
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, app_id, uhid, appointment_type, branch_id, dentist_id,
			patient_name, gender, age, date_of_birth, phone, email, address,
			blood_pressure, pulse, temperature, weight, height, spo2,
			appointment_date, time_slot, chief_complaint, status,
			consultation_fee, payment_mode, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		RETURNING created_at, updated_at`,
		a.ID, a.AppID, a.UHID, a.AppointmentType, a.BranchID, a.DentistID,
		a.PatientName, a.Gender, a.Age, a.DateOfBirth, a.Phone, a.Email, a.Address,
		a.BloodPressure, a.Pulse, a.Temperature, a.Weight, a.Height, a.SpO2,
		a.AppointmentDate, a.TimeSlot, a.ChiefComplaint, a.Status,
		a.ConsultationFee, a.PaymentMode, a.PaymentStatus).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return db.Translate(err, "appointment")
	}
	a.Receipts = []uuid.UUID{}
	a.Invoices = []uuid.UUID{}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) GetByAppID(ctx context.Context, appID string) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE app_id = $1`, appID))
}

func (r *appointmentRepoPG) LatestByUHID(ctx context.Context, uhid string) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE uhid = $1 ORDER BY created_at DESC LIMIT 1`, uhid))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET branch_id=$2, dentist_id=$3,
			patient_name=$4, gender=$5, age=$6, date_of_birth=$7, phone=$8, email=$9, address=$10,
			blood_pressure=$11, pulse=$12, temperature=$13, weight=$14, height=$15, spo2=$16,
			appointment_date=$17, time_slot=$18, chief_complaint=$19, status=$20,
			consultation_fee=$21, payment_mode=$22, payment_status=$23, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.BranchID, a.DentistID,
		a.PatientName, a.Gender, a.Age, a.DateOfBirth, a.Phone, a.Email, a.Address,
		a.BloodPressure, a.Pulse, a.Temperature, a.Weight, a.Height, a.SpO2,
		a.AppointmentDate, a.TimeSlot, a.ChiefComplaint, a.Status,
		a.ConsultationFee, a.PaymentMode, a.PaymentStatus)
	return affected(tag, err)
}

func (r *appointmentRepoPG) UpdateVitals(ctx context.Context, id uuid.UUID, v Vitals) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET blood_pressure=$2, pulse=$3, temperature=$4, weight=$5, height=$6,
			spo2=$7, updated_at=NOW()
		WHERE id = $1`,
		id, v.BloodPressure, v.Pulse, v.Temperature, v.Weight, v.Height, v.SpO2)
	return affected(tag, err)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return affected(tag, err)
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}
	if f.UHID != "" {
		add(` AND uhid = $%d`, f.UHID)
	}
	if f.Status != "" {
		add(` AND status = $%d`, f.Status)
	}
	if f.AppointmentType != "" {
		add(` AND appointment_type = $%d`, f.AppointmentType)
	}
	if f.BranchID != nil {
		add(` AND branch_id = $%d`, *f.BranchID)
	}
	if f.DentistID != nil {
		add(` AND dentist_id = $%d`, *f.DentistID)
	}
	if f.Date != nil {
		from, until := dayBounds(*f.Date)
		add(` AND appointment_date >= $%d`, from)
		add(` AND appointment_date < $%d`, until)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + ` FROM appointment` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) AddReceipt(ctx context.Context, id, receiptID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET receipts = array_append(receipts, $2), receipt_generate = TRUE, updated_at = NOW()
		WHERE id = $1`, id, receiptID)
	return affected(tag, err)
}

func (r *appointmentRepoPG) RemoveReceipt(ctx context.Context, id, receiptID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET receipts = array_remove(receipts, $2),
			receipt_generate = cardinality(array_remove(receipts, $2)) > 0, updated_at = NOW()
		WHERE id = $1`, id, receiptID)
	return affected(tag, err)
}

func (r *appointmentRepoPG) AddInvoice(ctx context.Context, id, invoiceID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET invoices = array_append(invoices, $2), invoice_generate = TRUE, updated_at = NOW()
		WHERE id = $1`, id, invoiceID)
	return affected(tag, err)
}

func (r *appointmentRepoPG) RemoveInvoice(ctx context.Context, id, invoiceID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET invoices = array_remove(invoices, $2),
			invoice_generate = cardinality(array_remove(invoices, $2)) > 0, updated_at = NOW()
		WHERE id = $1`, id, invoiceID)
	return affected(tag, err)
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return db.Translate(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}
