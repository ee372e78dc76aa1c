package admin

import (
	"time"

	"github.com/google/uuid"
)

type Branch struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Code          string    `db:"code" json:"code"`
	Address       string    `db:"address" json:"address,omitempty"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	Email         string    `db:"email" json:"email,omitempty"`
	LetterheadURL string    `db:"letterhead_url" json:"letterheadUrl,omitempty"`
	LetterheadID  string    `db:"letterhead_id" json:"letterheadId,omitempty"`
	Active        *bool     `db:"active" json:"active,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// ClinicService is an entry of the clinic's price list.
type ClinicService struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	Description     string    `db:"description" json:"description,omitempty"`
	Price           float64   `db:"price" json:"price"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
	Active          *bool     `db:"active" json:"active,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

var validUserStatuses = map[string]bool{
	StatusPending:   true,
	StatusActive:    true,
	StatusSuspended: true,
}

// User is a staff member who signs in to the clinic.
type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AccountID     string     `db:"account_id" json:"accountId"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	Phone         string     `db:"phone" json:"phone,omitempty"`
	Role          string     `db:"role" json:"role"`
	BranchID      *uuid.UUID `db:"branch_id" json:"branchId,omitempty"`
	Qualification string     `db:"qualification" json:"qualification,omitempty"`
	Status        string     `db:"status" json:"status"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	PhotoURL      string     `db:"photo_url" json:"photoUrl,omitempty"`
	PhotoID       string     `db:"photo_id" json:"photoId,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// OTP is an outstanding one-time code. Only the hash is kept.
type OTP struct {
	Email     string    `db:"email"`
	CodeHash  string    `db:"code_hash"`
	Attempts  int       `db:"attempts"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func boolPtr(b bool) *bool { return &b }
