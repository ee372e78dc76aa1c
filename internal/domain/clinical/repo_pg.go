package clinical

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

type pgBase struct{ pool *pgxpool.Pool }

func (r pgBase) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func changed(tag pgconn.CommandTag, err error, entity string) error {
	if err != nil {
		return db.Translate(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// listRows runs the count and page queries shared by every clinical table.
func listRows[T any](ctx context.Context, q queryable, table, cols string, f ListFilter, withStatus bool,
	limit, offset int, scan func(pgx.Row) (*T, error)) ([]*T, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	add := func(clause string, v interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, v)
		idx++
	}
	if f.AppointmentID != nil {
		add(` AND appointment_id = $%d`, *f.AppointmentID)
	}
	if f.UHID != "" {
		add(` AND uhid = $%d`, f.UHID)
	}
	if f.DentistID != nil {
		add(` AND dentist_id = $%d`, *f.DentistID)
	}
	if withStatus && f.Status != "" {
		add(` AND status = $%d`, f.Status)
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + cols + ` FROM ` + table + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// =========== Examination Repository ===========

type examinationRepoPG struct{ pgBase }

func NewExaminationRepoPG(pool *pgxpool.Pool) ExaminationRepository {
	return &examinationRepoPG{pgBase{pool}}
}

const examCols = `id, appointment_id, uhid, dentist_id, chart, chief_complaint, findings, notes,
	teeth_details, created_at, updated_at`

func scanExamination(row pgx.Row) (*Examination, error) {
	var e Examination
	err := row.Scan(&e.ID, &e.AppointmentID, &e.UHID, &e.DentistID, &e.Chart, &e.ChiefComplaint,
		&e.Findings, &e.Notes, &e.TeethDetails, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "examination")
	}
	return &e, nil
}

func (r *examinationRepoPG) Create(ctx context.Context, e *Examination) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO examination (id, appointment_id, uhid, dentist_id, chart, chief_complaint,
			findings, notes, teeth_details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		e.ID, e.AppointmentID, e.UHID, e.DentistID, e.Chart, e.ChiefComplaint,
		e.Findings, e.Notes, bare(e.TeethDetails)).Scan(&e.CreatedAt, &e.UpdatedAt)
	return db.Translate(err, "examination")
}

func (r *examinationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Examination, error) {
	return scanExamination(r.conn(ctx).QueryRow(ctx, `SELECT `+examCols+` FROM examination WHERE id = $1`, id))
}

func (r *examinationRepoPG) Update(ctx context.Context, e *Examination) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE examination SET dentist_id=$2, chart=$3, chief_complaint=$4, findings=$5, notes=$6,
			teeth_details=$7, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.DentistID, e.Chart, e.ChiefComplaint, e.Findings, e.Notes, bare(e.TeethDetails))
	return changed(tag, err, "examination")
}

func (r *examinationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM examination WHERE id = $1`, id)
	return changed(tag, err, "examination")
}

func (r *examinationRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Examination, int, error) {
	return listRows(ctx, r.conn(ctx), "examination", examCols, f, false, limit, offset, scanExamination)
}

// =========== Treatment Procedure Repository ===========

type procedureRepoPG struct{ pgBase }

func NewTreatmentProcedureRepoPG(pool *pgxpool.Pool) TreatmentProcedureRepository {
	return &procedureRepoPG{pgBase{pool}}
}

const procCols = `id, appointment_id, uhid, dentist_id, chart, procedure_name, materials, notes,
	status, cost, teeth_details, created_at, updated_at`

func scanProcedure(row pgx.Row) (*TreatmentProcedure, error) {
	var p TreatmentProcedure
	err := row.Scan(&p.ID, &p.AppointmentID, &p.UHID, &p.DentistID, &p.Chart, &p.Procedure,
		&p.Materials, &p.Notes, &p.Status, &p.Cost, &p.TeethDetails, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "treatment procedure")
	}
	return &p, nil
}

func (r *procedureRepoPG) Create(ctx context.Context, p *TreatmentProcedure) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_procedure (id, appointment_id, uhid, dentist_id, chart, procedure_name,
			materials, notes, status, cost, teeth_details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.UHID, p.DentistID, p.Chart, p.Procedure,
		p.Materials, p.Notes, p.Status, p.Cost, bare(p.TeethDetails)).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Translate(err, "treatment procedure")
}

func (r *procedureRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentProcedure, error) {
	return scanProcedure(r.conn(ctx).QueryRow(ctx, `SELECT `+procCols+` FROM treatment_procedure WHERE id = $1`, id))
}

func (r *procedureRepoPG) Update(ctx context.Context, p *TreatmentProcedure) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_procedure SET dentist_id=$2, chart=$3, procedure_name=$4, materials=$5,
			notes=$6, status=$7, cost=$8, teeth_details=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DentistID, p.Chart, p.Procedure, p.Materials, p.Notes, p.Status, p.Cost, bare(p.TeethDetails))
	return changed(tag, err, "treatment procedure")
}

func (r *procedureRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_procedure WHERE id = $1`, id)
	return changed(tag, err, "treatment procedure")
}

func (r *procedureRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*TreatmentProcedure, int, error) {
	return listRows(ctx, r.conn(ctx), "treatment_procedure", procCols, f, true, limit, offset, scanProcedure)
}

// =========== Plan Repository ===========

type planRepoPG struct{ pgBase }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pgBase{pool}}
}

const planCols = `id, appointment_id, uhid, dentist_id, chart, estimated_cost, notes, status,
	teeth_details, created_at, updated_at`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.AppointmentID, &p.UHID, &p.DentistID, &p.Chart, &p.EstimatedCost,
		&p.Notes, &p.Status, &p.TeethDetails, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "treatment plan")
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_plan (id, appointment_id, uhid, dentist_id, chart, estimated_cost,
			notes, status, teeth_details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.UHID, p.DentistID, p.Chart, p.EstimatedCost,
		p.Notes, p.Status, bare(p.TeethDetails)).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Translate(err, "treatment plan")
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plan WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *Plan) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_plan SET dentist_id=$2, chart=$3, estimated_cost=$4, notes=$5, status=$6,
			teeth_details=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DentistID, p.Chart, p.EstimatedCost, p.Notes, p.Status, bare(p.TeethDetails))
	return changed(tag, err, "treatment plan")
}

func (r *planRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment_plan WHERE id = $1`, id)
	return changed(tag, err, "treatment plan")
}

func (r *planRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Plan, int, error) {
	return listRows(ctx, r.conn(ctx), "treatment_plan", planCols, f, true, limit, offset, scanPlan)
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pgBase }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pgBase{pool}}
}

const rxCols = `id, appointment_id, uhid, dentist_id, medicines, advice, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.AppointmentID, &p.UHID, &p.DentistID, &p.Medicines, &p.Advice,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "prescription")
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, appointment_id, uhid, dentist_id, medicines, advice)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.AppointmentID, p.UHID, p.DentistID, p.Medicines, p.Advice).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Translate(err, "prescription")
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET dentist_id=$2, medicines=$3, advice=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DentistID, p.Medicines, p.Advice)
	return changed(tag, err, "prescription")
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	return changed(tag, err, "prescription")
}

func (r *prescriptionRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return listRows(ctx, r.conn(ctx), "prescription", rxCols, f, false, limit, offset, scanPrescription)
}
