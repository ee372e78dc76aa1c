package reporting

import (
	"context"
	"time"
)

// AppointmentRecord is the part of an appointment the dashboard reads.
type AppointmentRecord struct {
	CreatedAt time.Time
	New       bool
}

type PaymentRecord struct {
	Source    Source
	Amount    float64
	CreatedAt time.Time
}

// Loader supplies the records a MemoryRepository aggregates.
type Loader struct {
	Appointments func(ctx context.Context) ([]AppointmentRecord, error)
	Payments     func(ctx context.Context) ([]PaymentRecord, error)
}

// MemoryRepository answers Repository queries by scanning records in memory.
// It backs the in-memory server mode and Aggregate.
type MemoryRepository struct {
	load Loader
}

func NewMemoryRepository(load Loader) *MemoryRepository {
	return &MemoryRepository{load: load}
}

func within(t time.Time, from, until *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if until != nil && t.After(*until) {
		return false
	}
	return true
}

func (r *MemoryRepository) appointments(ctx context.Context) ([]AppointmentRecord, error) {
	if r.load.Appointments == nil {
		return nil, nil
	}
	return r.load.Appointments(ctx)
}

func (r *MemoryRepository) CountAppointments(ctx context.Context, f Filter) (int64, error) {
	recs, err := r.appointments(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, a := range recs {
		if (!f.NewOnly || a.New) && within(a.CreatedAt, f.From, f.Until) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) PatientTimes(ctx context.Context, w Window) ([]time.Time, error) {
	recs, err := r.appointments(ctx)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for _, a := range recs {
		if a.New && w.Contains(a.CreatedAt) {
			out = append(out, a.CreatedAt)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Revenue(ctx context.Context, source Source, from, until *time.Time) (float64, error) {
	if r.load.Payments == nil {
		return 0, nil
	}
	recs, err := r.load.Payments(ctx)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, p := range recs {
		if p.Source == source && within(p.CreatedAt, from, until) {
			sum += p.Amount
		}
	}
	return sum, nil
}

// Aggregate computes the dashboard for a fixed set of records.
func Aggregate(now time.Time, appts []AppointmentRecord, payments []PaymentRecord) *Dashboard {
	repo := NewMemoryRepository(Loader{
		Appointments: func(context.Context) ([]AppointmentRecord, error) { return appts, nil },
		Payments:     func(context.Context) ([]PaymentRecord, error) { return payments, nil },
	})
	// Static loaders cannot fail.
	d, _ := NewService(repo).Dashboard(context.Background(), now)
	return d
}
