package clinical

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

// rowKeys exposes the columns the in-memory tables index and filter on.
type rowKeys struct {
	id            *uuid.UUID
	appointmentID *uuid.UUID
	uhid          string
	dentistID     *uuid.UUID
	status        string
	createdAt     *time.Time
	updatedAt     *time.Time
}

// memTable is the in-memory repository shared by the clinical records.
// Rows are stored and handed out as copies.
type memTable[T any] struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]*T
	entity string
	keys   func(*T) rowKeys
	clone  func(*T) *T
}

func newMemTable[T any](entity string, keys func(*T) rowKeys, clone func(*T) *T) *memTable[T] {
	return &memTable[T]{rows: make(map[uuid.UUID]*T), entity: entity, keys: keys, clone: clone}
}

func (m *memTable[T]) Create(_ context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.keys(v)
	*k.id = uuid.New()
	*k.createdAt = time.Now()
	*k.updatedAt = *k.createdAt
	m.rows[*k.id] = m.clone(v)
	return nil
}

func (m *memTable[T]) GetByID(_ context.Context, id uuid.UUID) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound(m.entity)
	}
	return m.clone(v), nil
}

func (m *memTable[T]) Update(_ context.Context, v *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.keys(v)
	existing, ok := m.rows[*k.id]
	if !ok {
		return apperr.NotFound(m.entity)
	}
	*k.createdAt = *m.keys(existing).createdAt
	*k.updatedAt = time.Now()
	m.rows[*k.id] = m.clone(v)
	return nil
}

func (m *memTable[T]) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFound(m.entity)
	}
	delete(m.rows, id)
	return nil
}

func (m *memTable[T]) List(_ context.Context, f ListFilter, limit, offset int) ([]*T, int, error) {
	m.mu.RLock()
	var matched []*T
	for _, v := range m.rows {
		k := m.keys(v)
		if f.AppointmentID != nil && (k.appointmentID == nil || *k.appointmentID != *f.AppointmentID) {
			continue
		}
		if f.UHID != "" && k.uhid != f.UHID {
			continue
		}
		if f.DentistID != nil && (k.dentistID == nil || *k.dentistID != *f.DentistID) {
			continue
		}
		if f.Status != "" && k.status != f.Status {
			continue
		}
		matched = append(matched, m.clone(v))
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return m.keys(matched[i]).createdAt.After(*m.keys(matched[j]).createdAt)
	})
	return pagination.Window(matched, limit, offset), len(matched), nil
}

func NewExaminationRepoMem() ExaminationRepository {
	return newMemTable("examination",
		func(e *Examination) rowKeys {
			return rowKeys{id: &e.ID, appointmentID: &e.AppointmentID, uhid: e.UHID, dentistID: e.DentistID,
				createdAt: &e.CreatedAt, updatedAt: &e.UpdatedAt}
		},
		func(e *Examination) *Examination {
			cp := *e
			cp.Treatments = nil
			cp.TeethDetails = bare(e.TeethDetails)
			return &cp
		})
}

func NewTreatmentProcedureRepoMem() TreatmentProcedureRepository {
	return newMemTable("treatment procedure",
		func(p *TreatmentProcedure) rowKeys {
			return rowKeys{id: &p.ID, appointmentID: &p.AppointmentID, uhid: p.UHID, dentistID: p.DentistID,
				status: p.Status, createdAt: &p.CreatedAt, updatedAt: &p.UpdatedAt}
		},
		func(p *TreatmentProcedure) *TreatmentProcedure {
			cp := *p
			cp.Treatments = nil
			cp.TeethDetails = bare(p.TeethDetails)
			return &cp
		})
}

func NewPlanRepoMem() PlanRepository {
	return newMemTable("treatment plan",
		func(p *Plan) rowKeys {
			return rowKeys{id: &p.ID, appointmentID: p.AppointmentID, uhid: p.UHID, dentistID: p.DentistID,
				status: p.Status, createdAt: &p.CreatedAt, updatedAt: &p.UpdatedAt}
		},
		func(p *Plan) *Plan {
			cp := *p
			cp.Treatments = nil
			cp.TeethDetails = bare(p.TeethDetails)
			return &cp
		})
}

func NewPrescriptionRepoMem() PrescriptionRepository {
	return newMemTable("prescription",
		func(p *Prescription) rowKeys {
			return rowKeys{id: &p.ID, appointmentID: &p.AppointmentID, uhid: p.UHID, dentistID: p.DentistID,
				createdAt: &p.CreatedAt, updatedAt: &p.UpdatedAt}
		},
		func(p *Prescription) *Prescription {
			cp := *p
			cp.Medicines = append([]Medicine{}, p.Medicines...)
			return &cp
		})
}
