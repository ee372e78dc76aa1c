package reporting

import (
	"context"
	"fmt"
	"time"
)

// Counts is one metric over every dashboard window.
type Counts struct {
	Total       int64 `json:"total"`
	Today       int64 `json:"today"`
	Last7Days   int64 `json:"last7Days"`
	LastMonth   int64 `json:"lastMonth"`
	Last3Months int64 `json:"last3Months"`
}

type Amounts struct {
	Total       float64 `json:"total"`
	Today       float64 `json:"today"`
	Last7Days   float64 `json:"last7Days"`
	LastMonth   float64 `json:"lastMonth"`
	Last3Months float64 `json:"last3Months"`
}

type Revenue struct {
	Receipts Amounts `json:"receipts"`
	Invoices Amounts `json:"invoices"`
}

// Dashboard is the flat shape the front desk reads. A patient is an
// appointment booked as New.
type Dashboard struct {
	TotalPatients           int64      `json:"totalPatients"`
	TodayPatients           int64      `json:"todayPatients"`
	Last7DaysPatients       int64      `json:"last7DaysPatients"`
	LastMonthPatients       int64      `json:"lastMonthPatients"`
	Last3MonthsPatients     int64      `json:"last3MonthsPatients"`
	TotalAppointments       int64      `json:"totalAppointments"`
	TodayAppointments       int64      `json:"todayAppointments"`
	Last7DaysAppointments   int64      `json:"last7DaysAppointments"`
	LastMonthAppointments   int64      `json:"lastMonthAppointments"`
	Last3MonthsAppointments int64      `json:"last3MonthsAppointments"`
	DailyPatientCounts      []DayCount `json:"dailyPatientCounts"`
	Revenue                 Revenue    `json:"revenue"`
	GeneratedAt             time.Time  `json:"generatedAt"`
}

func (d *Dashboard) setPatients(c Counts) {
	d.TotalPatients, d.TodayPatients, d.Last7DaysPatients = c.Total, c.Today, c.Last7Days
	d.LastMonthPatients, d.Last3MonthsPatients = c.LastMonth, c.Last3Months
}

func (d *Dashboard) setAppointments(c Counts) {
	d.TotalAppointments, d.TodayAppointments, d.Last7DaysAppointments = c.Total, c.Today, c.Last7Days
	d.LastMonthAppointments, d.Last3MonthsAppointments = c.LastMonth, c.Last3Months
}

// Source names the table revenue is summed from.
type Source string

const (
	SourceReceipts Source = "receipt"
	SourceInvoices Source = "invoice"
)

// Filter selects appointments. A nil bound is open.
type Filter struct {
	From    *time.Time
	Until   *time.Time
	NewOnly bool
}

type Repository interface {
	CountAppointments(ctx context.Context, f Filter) (int64, error)
	// PatientTimes returns the creation times of New appointments in w.
	PatientTimes(ctx context.Context, w Window) ([]time.Time, error)
	Revenue(ctx context.Context, source Source, from, until *time.Time) (float64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard computes every count relative to now. It only reads.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	w := WindowsAt(now)
	d := &Dashboard{GeneratedAt: now}

	patients, err := s.counts(ctx, w, true)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	d.setPatients(patients)

	appts, err := s.counts(ctx, w, false)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	d.setAppointments(appts)

	times, err := s.repo.PatientTimes(ctx, w.Last7Days)
	if err != nil {
		return nil, fmt.Errorf("patients per day: %w", err)
	}
	d.DailyPatientCounts = DayCounts(times, now.Location())

	if d.Revenue.Receipts, err = s.amounts(ctx, w, SourceReceipts); err != nil {
		return nil, fmt.Errorf("receipt revenue: %w", err)
	}
	if d.Revenue.Invoices, err = s.amounts(ctx, w, SourceInvoices); err != nil {
		return nil, fmt.Errorf("invoice revenue: %w", err)
	}
	return d, nil
}

func (s *Service) counts(ctx context.Context, w Windows, newOnly bool) (Counts, error) {
	var c Counts
	targets := []struct {
		dst *int64
		win *Window
	}{
		{&c.Total, nil},
		{&c.Today, &w.Today},
		{&c.Last7Days, &w.Last7Days},
		{&c.LastMonth, &w.LastMonth},
		{&c.Last3Months, &w.Last3Months},
	}
	for _, t := range targets {
		f := Filter{NewOnly: newOnly}
		if t.win != nil {
			f.From, f.Until = &t.win.From, &t.win.Until
		}
		n, err := s.repo.CountAppointments(ctx, f)
		if err != nil {
			return Counts{}, err
		}
		*t.dst = n
	}
	return c, nil
}

func (s *Service) amounts(ctx context.Context, w Windows, src Source) (Amounts, error) {
	var a Amounts
	targets := []struct {
		dst *float64
		win *Window
	}{
		{&a.Total, nil},
		{&a.Today, &w.Today},
		{&a.Last7Days, &w.Last7Days},
		{&a.LastMonth, &w.LastMonth},
		{&a.Last3Months, &w.Last3Months},
	}
	for _, t := range targets {
		var from, until *time.Time
		if t.win != nil {
			from, until = &t.win.From, &t.win.Until
		}
		v, err := s.repo.Revenue(ctx, src, from, until)
		if err != nil {
			return Amounts{}, err
		}
		*t.dst = v
	}
	return a, nil
}
