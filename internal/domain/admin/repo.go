package admin

import (
	"context"

	"github.com/google/uuid"
)

type BranchRepository interface {
	Create(ctx context.Context, b *Branch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	Update(ctx context.Context, b *Branch) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Branch, int, error)
}

type ClinicServiceRepository interface {
	Create(ctx context.Context, s *ClinicService) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicService, error)
	Update(ctx context.Context, s *ClinicService) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*ClinicService, int, error)
}

type UserFilter struct {
	Role     string
	Status   string
	BranchID *uuid.UUID
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByLogin finds a user by email (case-insensitive) or account id.
	GetByLogin(ctx context.Context, login string) (*User, error)
	Update(ctx context.Context, u *User) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetPhoto(ctx context.Context, id uuid.UUID, url, photoID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error)
}

type OTPRepository interface {
	// Save replaces any outstanding code for the email.
	Save(ctx context.Context, otp *OTP) error
	Get(ctx context.Context, email string) (*OTP, error)
	IncrementAttempts(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}
