package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

// ReceiptRepoMem keeps receipts in memory for tests and the dev server.
type ReceiptRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Receipt
}

func NewReceiptRepoMem() *ReceiptRepoMem {
	return &ReceiptRepoMem{items: make(map[uuid.UUID]Receipt)}
}

func (m *ReceiptRepoMem) Create(_ context.Context, r *Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ReceiptNumber == r.ReceiptNumber {
			return apperr.Conflict("receipt " + r.ReceiptNumber)
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.items[r.ID] = *r
	return nil
}

func (m *ReceiptRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("receipt")
	}
	return &r, nil
}

func (m *ReceiptRepoMem) GetByNumber(_ context.Context, number string) (*Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.items {
		if r.ReceiptNumber == number {
			return &r, nil
		}
	}
	return nil, apperr.NotFound("receipt")
}

func (m *ReceiptRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("receipt")
	}
	delete(m.items, id)
	return nil
}

func (m *ReceiptRepoMem) List(_ context.Context, f ListFilter, limit, offset int) ([]*Receipt, int, error) {
	all := m.All()
	var matched []*Receipt
	for i := range all {
		r := all[i]
		if f.AppointmentID != nil && r.AppointmentID != *f.AppointmentID {
			continue
		}
		if f.UHID != "" && r.UHID != f.UHID {
			continue
		}
		matched = append(matched, &r)
	}
	return pagination.Window(matched, limit, offset), len(matched), nil
}

// All returns every receipt, newest first.
func (m *ReceiptRepoMem) All() []Receipt {
	m.mu.RLock()
	out := make([]Receipt, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// InvoiceRepoMem keeps invoices in memory for tests and the dev server.
type InvoiceRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Invoice
}

func NewInvoiceRepoMem() *InvoiceRepoMem {
	return &InvoiceRepoMem{items: make(map[uuid.UUID]Invoice)}
}

func (m *InvoiceRepoMem) Create(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return apperr.Conflict("invoice " + inv.InvoiceNumber)
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	m.items[inv.ID] = *inv
	return nil
}

func (m *InvoiceRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound("invoice")
	}
	return &inv, nil
}

func (m *InvoiceRepoMem) GetByNumber(_ context.Context, number string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.items {
		if inv.InvoiceNumber == number {
			return &inv, nil
		}
	}
	return nil, apperr.NotFound("invoice")
}

func (m *InvoiceRepoMem) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("invoice")
	}
	delete(m.items, id)
	return nil
}

func (m *InvoiceRepoMem) List(_ context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	all := m.All()
	var matched []*Invoice
	for i := range all {
		inv := all[i]
		if f.AppointmentID != nil && inv.AppointmentID != *f.AppointmentID {
			continue
		}
		if f.UHID != "" && inv.UHID != f.UHID {
			continue
		}
		matched = append(matched, &inv)
	}
	return pagination.Window(matched, limit, offset), len(matched), nil
}

// All returns every invoice, newest first.
func (m *InvoiceRepoMem) All() []Invoice {
	m.mu.RLock()
	out := make([]Invoice, 0, len(m.items))
	for _, inv := range m.items {
		out = append(out, inv)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
