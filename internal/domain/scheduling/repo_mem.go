package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

// AppointmentRepoMem keeps appointments in memory for tests and the
// database-less dev server.
type AppointmentRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Appointment
	now   func() time.Time
}

func NewAppointmentRepoMem() *AppointmentRepoMem {
	return &AppointmentRepoMem{items: make(map[uuid.UUID]*Appointment), now: time.Now}
}

func clone(a *Appointment) *Appointment {
	cp := *a
	cp.Receipts = append([]uuid.UUID{}, a.Receipts...)
	cp.Invoices = append([]uuid.UUID{}, a.Invoices...)
	return &cp
}

func (r *AppointmentRepoMem) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.AppID != "" {
		for _, existing := range r.items {
			if existing.AppID == a.AppID {
				return apperr.Conflict("appointment appId " + a.AppID)
			}
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt
	a.Receipts = []uuid.UUID{}
	a.Invoices = []uuid.UUID{}
	r.items[a.ID] = clone(a)
	return nil
}

func (r *AppointmentRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("appointment")
	}
	return clone(a), nil
}

func (r *AppointmentRepoMem) GetByAppID(_ context.Context, appID string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.AppID == appID {
			return clone(a), nil
		}
	}
	return nil, apperr.NotFound("appointment")
}

func (r *AppointmentRepoMem) LatestByUHID(_ context.Context, uhid string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Appointment
	for _, a := range r.items {
		if a.UHID == uhid && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("appointment")
	}
	return clone(latest), nil
}

func (r *AppointmentRepoMem) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[a.ID]
	if !ok {
		return apperr.NotFound("appointment")
	}
	cp := clone(a)
	cp.AppID = existing.AppID
	cp.UHID = existing.UHID
	cp.AppointmentType = existing.AppointmentType
	cp.Receipts = existing.Receipts
	cp.Invoices = existing.Invoices
	cp.ReceiptGenerate = existing.ReceiptGenerate
	cp.InvoiceGenerate = existing.InvoiceGenerate
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = r.now()
	r.items[a.ID] = cp
	a.UpdatedAt = cp.UpdatedAt
	return nil
}

func (r *AppointmentRepoMem) UpdateVitals(_ context.Context, id uuid.UUID, v Vitals) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return apperr.NotFound("appointment")
	}
	a.Vitals = v
	a.UpdatedAt = r.now()
	return nil
}

func (r *AppointmentRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("appointment")
	}
	delete(r.items, id)
	return nil
}

func (f ListFilter) matches(a *Appointment) bool {
	if f.UHID != "" && a.UHID != f.UHID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.AppointmentType != "" && a.AppointmentType != f.AppointmentType {
		return false
	}
	if f.BranchID != nil && (a.BranchID == nil || *a.BranchID != *f.BranchID) {
		return false
	}
	if f.DentistID != nil && (a.DentistID == nil || *a.DentistID != *f.DentistID) {
		return false
	}
	if f.Date != nil {
		if a.AppointmentDate == nil {
			return false
		}
		from, until := dayBounds(*f.Date)
		if a.AppointmentDate.Before(from) || !a.AppointmentDate.Before(until) {
			return false
		}
	}
	return true
}

func (r *AppointmentRepoMem) List(_ context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	matched := r.Snapshot(f)
	return pagination.Window(matched, limit, offset), len(matched), nil
}

// Snapshot returns copies of the appointments matching f, newest first.
func (r *AppointmentRepoMem) Snapshot(f ListFilter) []*Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*Appointment
	for _, a := range r.items {
		if f.matches(a) {
			matched = append(matched, clone(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (r *AppointmentRepoMem) AddReceipt(_ context.Context, id, receiptID uuid.UUID) error {
	return r.link(id, func(a *Appointment) {
		a.Receipts = append(a.Receipts, receiptID)
		a.ReceiptGenerate = true
	})
}

func (r *AppointmentRepoMem) RemoveReceipt(_ context.Context, id, receiptID uuid.UUID) error {
	return r.link(id, func(a *Appointment) {
		a.Receipts = without(a.Receipts, receiptID)
		a.ReceiptGenerate = len(a.Receipts) > 0
	})
}

func (r *AppointmentRepoMem) AddInvoice(_ context.Context, id, invoiceID uuid.UUID) error {
	return r.link(id, func(a *Appointment) {
		a.Invoices = append(a.Invoices, invoiceID)
		a.InvoiceGenerate = true
	})
}

func (r *AppointmentRepoMem) RemoveInvoice(_ context.Context, id, invoiceID uuid.UUID) error {
	return r.link(id, func(a *Appointment) {
		a.Invoices = without(a.Invoices, invoiceID)
		a.InvoiceGenerate = len(a.Invoices) > 0
	})
}

func (r *AppointmentRepoMem) link(id uuid.UUID, fn func(a *Appointment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return apperr.NotFound("appointment")
	}
	fn(a)
	a.UpdatedAt = r.now()
	return nil
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
