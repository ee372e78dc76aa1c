package admin

import (
	"context"
	"fmt"
	"strings"

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

func affected(tag pgconn.CommandTag, err error, entity string) error {
	if err != nil {
		return db.Translate(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// =========== Branch Repository ===========

type branchRepoPG struct{ pool *pgxpool.Pool }

func NewBranchRepoPG(pool *pgxpool.Pool) BranchRepository { return &branchRepoPG{pool: pool} }

const branchCols = `id, name, code, address, phone, email, letterhead_url, letterhead_id, active,
	created_at, updated_at`

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.Name, &b.Code, &b.Address, &b.Phone, &b.Email, &b.LetterheadURL,
		&b.LetterheadID, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "branch")
	}
	return &b, nil
}

func (r *branchRepoPG) Create(ctx context.Context, b *Branch) error {
	b.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO branch (id, name, code, address, phone, email, letterhead_url, letterhead_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		b.ID, b.Name, b.Code, b.Address, b.Phone, b.Email, b.LetterheadURL, b.LetterheadID, b.Active,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return db.Translate(err, "branch")
}

func (r *branchRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	return scanBranch(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+branchCols+` FROM branch WHERE id = $1`, id))
}

func (r *branchRepoPG) Update(ctx context.Context, b *Branch) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		UPDATE branch SET name=$2, code=$3, address=$4, phone=$5, email=$6, letterhead_url=$7,
			letterhead_id=$8, active=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.Name, b.Code, b.Address, b.Phone, b.Email, b.LetterheadURL, b.LetterheadID, b.Active,
	).Scan(&b.UpdatedAt)
	return db.Translate(err, "branch")
}

func (r *branchRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM branch WHERE id = $1`, id)
	return affected(tag, err, "branch")
}

func (r *branchRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Branch, int, error) {
	q := connFor(ctx, r.pool)
	where := ` WHERE 1=1`
	if activeOnly {
		where += ` AND active`
	}
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM branch`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+branchCols+` FROM branch`+where+
		` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

// =========== Clinic Service Repository ===========

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewClinicServiceRepoPG(pool *pgxpool.Pool) ClinicServiceRepository {
	return &serviceRepoPG{pool: pool}
}

const serviceCols = `id, name, code, description, price, duration_minutes, active, created_at, updated_at`

func scanService(row pgx.Row) (*ClinicService, error) {
	var s ClinicService
	err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Description, &s.Price, &s.DurationMinutes,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "service")
	}
	return &s, nil
}

func (r *serviceRepoPG) Create(ctx context.Context, s *ClinicService) error {
	s.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO clinic_service (id, name, code, description, price, duration_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Code, s.Description, s.Price, s.DurationMinutes, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.Translate(err, "service")
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicService, error) {
	return scanService(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+serviceCols+` FROM clinic_service WHERE id = $1`, id))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *ClinicService) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		UPDATE clinic_service SET name=$2, code=$3, description=$4, price=$5, duration_minutes=$6,
			active=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.Code, s.Description, s.Price, s.DurationMinutes, s.Active,
	).Scan(&s.UpdatedAt)
	return db.Translate(err, "service")
}

func (r *serviceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM clinic_service WHERE id = $1`, id)
	return affected(tag, err, "service")
}

func (r *serviceRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error) {
	q := connFor(ctx, r.pool)
	where := ` WHERE 1=1`
	if activeOnly {
		where += ` AND active`
	}
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM clinic_service`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+serviceCols+` FROM clinic_service`+where+
		` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*ClinicService{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, account_id, name, email, phone, role, branch_id, qualification, status,
	password_hash, photo_url, photo_id, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.AccountID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.BranchID,
		&u.Qualification, &u.Status, &u.PasswordHash, &u.PhotoURL, &u.PhotoID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err, "user")
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO app_user (id, account_id, name, email, phone, role, branch_id, qualification,
			status, password_hash, photo_url, photo_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		u.ID, u.AccountID, u.Name, strings.ToLower(u.Email), u.Phone, u.Role, u.BranchID,
		u.Qualification, u.Status, u.PasswordHash, u.PhotoURL, u.PhotoID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return db.Translate(err, "user")
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(connFor(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByLogin(ctx context.Context, login string) (*User, error) {
	return scanUser(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE email = LOWER($1) OR account_id = $1`, login))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		UPDATE app_user SET name=$2, email=$3, phone=$4, role=$5, branch_id=$6, qualification=$7,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.Role, u.BranchID, u.Qualification,
	).Scan(&u.UpdatedAt)
	return db.Translate(err, "user")
}

func (r *userRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE app_user SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return affected(tag, err, "user")
}

func (r *userRepoPG) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE app_user SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return affected(tag, err, "user")
}

func (r *userRepoPG) SetPhoto(ctx context.Context, id uuid.UUID, url, photoID string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE app_user SET photo_url = $2, photo_id = $3, updated_at = NOW() WHERE id = $1`, id, url, photoID)
	return affected(tag, err, "user")
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	return affected(tag, err, "user")
}

func (r *userRepoPG) List(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	q := connFor(ctx, r.pool)
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.Role != "" {
		where += fmt.Sprintf(` AND role = $%d`, idx)
		args = append(args, f.Role)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.BranchID != nil {
		where += fmt.Sprintf(` AND branch_id = $%d`, idx)
		args = append(args, *f.BranchID)
		idx++
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM app_user`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + userCols + ` FROM app_user` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// =========== OTP Repository ===========

type otpRepoPG struct{ pool *pgxpool.Pool }

func NewOTPRepoPG(pool *pgxpool.Pool) OTPRepository { return &otpRepoPG{pool: pool} }

func (r *otpRepoPG) Save(ctx context.Context, o *OTP) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO user_otp (email, code_hash, attempts, expires_at)
		VALUES (LOWER($1), $2, 0, $3)
		ON CONFLICT (email) DO UPDATE
			SET code_hash = EXCLUDED.code_hash, attempts = 0, expires_at = EXCLUDED.expires_at,
				created_at = NOW()
		RETURNING created_at`,
		o.Email, o.CodeHash, o.ExpiresAt).Scan(&o.CreatedAt)
	return db.Translate(err, "otp")
}

func (r *otpRepoPG) Get(ctx context.Context, email string) (*OTP, error) {
	var o OTP
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT email, code_hash, attempts, expires_at, created_at FROM user_otp WHERE email = LOWER($1)`,
		email).Scan(&o.Email, &o.CodeHash, &o.Attempts, &o.ExpiresAt, &o.CreatedAt)
	if err != nil {
		return nil, db.Translate(err, "otp")
	}
	return &o, nil
}

func (r *otpRepoPG) IncrementAttempts(ctx context.Context, email string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE user_otp SET attempts = attempts + 1 WHERE email = LOWER($1)`, email)
	return affected(tag, err, "otp")
}

func (r *otpRepoPG) Delete(ctx context.Context, email string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM user_otp WHERE email = LOWER($1)`, email)
	return affected(tag, err, "otp")
}
