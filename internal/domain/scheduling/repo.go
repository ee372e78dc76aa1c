package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows an appointment listing. Zero values are ignored.
type ListFilter struct {
	UHID            string
	Status          string
	AppointmentType string
	BranchID        *uuid.UUID
	DentistID       *uuid.UUID
	// Date matches appointments booked for that calendar day.
	Date *time.Time
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByAppID(ctx context.Context, appID string) (*Appointment, error)
	// LatestByUHID returns the most recently created visit of a patient.
	LatestByUHID(ctx context.Context, uhid string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateVitals(ctx context.Context, id uuid.UUID, v Vitals) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)

	AddReceipt(ctx context.Context, id, receiptID uuid.UUID) error
	RemoveReceipt(ctx context.Context, id, receiptID uuid.UUID) error
	AddInvoice(ctx context.Context, id, invoiceID uuid.UUID) error
	RemoveInvoice(ctx context.Context, id, invoiceID uuid.UUID) error
}

// dayBounds returns [midnight, next midnight) of t's calendar day in t's
// location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}
