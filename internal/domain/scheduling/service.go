package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/internal/platform/websocket"
	"github.com/dentalcare/clinic/pkg/apperr"
)

const (
	EventCreated = "appointment.created"
	EventUpdated = "appointment.updated"
	EventDeleted = "appointment.deleted"
)

type Service struct {
	appointments AppointmentRepository
	ids          *sequence.Generator
	events       websocket.Publisher
}

func NewService(appt AppointmentRepository, ids *sequence.Generator, events websocket.Publisher) *Service {
	if events == nil {
		events = websocket.NopPublisher{}
	}
	return &Service{appointments: appt, ids: ids, events: events}
}

// CreateAppointment books a visit. New patients always get a UHID from the
// counter; revisits must name a known UHID and inherit the demographics
// they leave empty. Every visit gets a fresh appId. Billing links start
// empty and only change through LinkReceipt and LinkInvoice.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.AppointmentType == "" {
		a.AppointmentType = TypeNew
	}
	if !validTypes[a.AppointmentType] {
		return apperr.Invalid("appointmentType", "must be New or Revisited, got %q", a.AppointmentType)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if err := validate(a); err != nil {
		return err
	}

	switch a.AppointmentType {
	case TypeRevisited:
		if a.UHID == "" {
			return apperr.Required("uhid")
		}
		prev, err := s.appointments.LatestByUHID(ctx, a.UHID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Invalid("uhid", "no patient with uhid %s", a.UHID)
		}
		if err != nil {
			return err
		}
		a.carryForward(prev)
	case TypeNew:
		if a.UHID != "" {
			return apperr.Invalid("uhid", "is assigned to New appointments; book a known patient as Revisited")
		}
		uhid, err := s.ids.Next(ctx, sequence.KindUHID)
		if err != nil {
			return err
		}
		a.UHID = uhid
	}
	if a.PatientName == "" {
		return apperr.Required("patientName")
	}

	appID, err := s.ids.Next(ctx, sequence.KindAppID)
	if err != nil {
		return err
	}
	a.AppID = appID
	a.Receipts, a.Invoices = []uuid.UUID{}, []uuid.UUID{}
	a.ReceiptGenerate, a.InvoiceGenerate = false, false

	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}
	s.publish(ctx, EventCreated, a)
	return nil
}

func validate(a *Appointment) error {
	if !validStatuses[a.Status] {
		return apperr.Invalid("status", "unknown status %q", a.Status)
	}
	if a.PaymentStatus != "" && !validPaymentStatuses[a.PaymentStatus] {
		return apperr.Invalid("paymentStatus", "unknown payment status %q", a.PaymentStatus)
	}
	if a.Age != nil && (*a.Age < 0 || *a.Age > 150) {
		return apperr.Invalid("age", "must be between 0 and 150")
	}
	if a.ConsultationFee != nil && *a.ConsultationFee < 0 {
		return apperr.Invalid("consultationFee", "must not be negative")
	}
	return validateVitals(a.Vitals)
}

func validateVitals(v Vitals) error {
	if v.Pulse != nil && *v.Pulse <= 0 {
		return apperr.Invalid("pulse", "must be positive")
	}
	if v.SpO2 != nil && (*v.SpO2 < 0 || *v.SpO2 > 100) {
		return apperr.Invalid("spo2", "must be between 0 and 100")
	}
	if v.Weight != nil && *v.Weight <= 0 {
		return apperr.Invalid("weight", "must be positive")
	}
	if v.Height != nil && *v.Height <= 0 {
		return apperr.Invalid("height", "must be positive")
	}
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) GetAppointmentByAppID(ctx context.Context, appID string) (*Appointment, error) {
	return s.appointments.GetByAppID(ctx, appID)
}

// Patient returns the latest visit of uhid, which carries the patient's
// current demographics.
func (s *Service) Patient(ctx context.Context, uhid string) (*Appointment, error) {
	if uhid == "" {
		return nil, apperr.Required("uhid")
	}
	return s.appointments.LatestByUHID(ctx, uhid)
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apperr.Invalid("status", "unknown status %q", f.Status)
	}
	return s.appointments.List(ctx, f, limit, offset)
}

// History lists every visit of a patient, newest first.
func (s *Service) History(ctx context.Context, uhid string, limit, offset int) ([]*Appointment, int, error) {
	if uhid == "" {
		return nil, 0, apperr.Required("uhid")
	}
	items, total, err := s.appointments.List(ctx, ListFilter{UHID: uhid}, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, apperr.NotFound("patient " + uhid)
	}
	return items, total, nil
}

// UpdateAppointment rewrites the editable fields. appId, uhid, the
// appointment type and the billing back-references are kept.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	existing, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = existing.Status
	}
	if err := validate(a); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return err
	}
	updated, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *updated
	s.publish(ctx, EventUpdated, a)
	return nil
}

func (s *Service) UpdateVitals(ctx context.Context, id uuid.UUID, v Vitals) (*Appointment, error) {
	if err := validateVitals(v); err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateVitals(ctx, id, v); err != nil {
		return nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventUpdated, a)
	return a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, websocket.NewEvent(ctx, EventDeleted, "appointment", id.String(), nil))
	return nil
}

// LinkReceipt records receiptID on the appointment and marks its receipt as
// generated.
func (s *Service) LinkReceipt(ctx context.Context, id, receiptID uuid.UUID) error {
	return s.link(ctx, id, func() error { return s.appointments.AddReceipt(ctx, id, receiptID) })
}

func (s *Service) UnlinkReceipt(ctx context.Context, id, receiptID uuid.UUID) error {
	return s.link(ctx, id, func() error { return s.appointments.RemoveReceipt(ctx, id, receiptID) })
}

func (s *Service) LinkInvoice(ctx context.Context, id, invoiceID uuid.UUID) error {
	return s.link(ctx, id, func() error { return s.appointments.AddInvoice(ctx, id, invoiceID) })
}

func (s *Service) UnlinkInvoice(ctx context.Context, id, invoiceID uuid.UUID) error {
	return s.link(ctx, id, func() error { return s.appointments.RemoveInvoice(ctx, id, invoiceID) })
}

func (s *Service) link(ctx context.Context, id uuid.UUID, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	if a, err := s.appointments.GetByID(ctx, id); err == nil {
		s.publish(ctx, EventUpdated, a)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, a *Appointment) {
	s.emit(ctx, websocket.NewEvent(ctx, typ, "appointment", a.ID.String(), a))
}

func (s *Service) emit(ctx context.Context, ev websocket.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", ev.Type).Msg("publish appointment event")
	}
}

// ParseDate accepts the date formats the booking form sends.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Invalid("date", "expected YYYY-MM-DD, got %q", s)
}
