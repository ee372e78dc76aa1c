package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalcare/clinic/internal/domain/scheduling"
	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/internal/platform/websocket"
	"github.com/dentalcare/clinic/pkg/apperr"
)

// Appointments is the part of the scheduling service billing writes
// back-references through.
type Appointments interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	LinkReceipt(ctx context.Context, id, receiptID uuid.UUID) error
	UnlinkReceipt(ctx context.Context, id, receiptID uuid.UUID) error
	LinkInvoice(ctx context.Context, id, invoiceID uuid.UUID) error
	UnlinkInvoice(ctx context.Context, id, invoiceID uuid.UUID) error
}

type Service struct {
	receipts     ReceiptRepository
	invoices     InvoiceRepository
	appointments Appointments
	ids          *sequence.Generator
	events       websocket.Publisher
}

func NewService(receipts ReceiptRepository, invoices InvoiceRepository, appts Appointments,
	ids *sequence.Generator, events websocket.Publisher) *Service {
	if events == nil {
		events = websocket.NopPublisher{}
	}
	return &Service{receipts: receipts, invoices: invoices, appointments: appts, ids: ids, events: events}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) publish(ctx context.Context, typ, entity string, id uuid.UUID, data interface{}) {
	ev := websocket.NewEvent(ctx, typ, entity, id.String(), data)
	if err := s.events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", typ).Msg("publish billing event")
	}
}

// -- Receipt --

// CreateReceipt numbers and stores a receipt, then records it on the
// appointment. The two writes are not atomic: when the back-reference
// cannot be written the receipt is removed again.
func (s *Service) CreateReceipt(ctx context.Context, r *Receipt) error {
	if r.AppointmentID == uuid.Nil {
		return apperr.Required("appointmentId")
	}
	if r.PaymentMode == "" {
		r.PaymentMode = "cash"
	}
	if !validPaymentModes[r.PaymentMode] {
		return apperr.Invalid("paymentMode", "unknown payment mode %q", r.PaymentMode)
	}
	if r.Items == nil {
		r.Items = []ReceiptItem{}
	}
	var itemTotal float64
	for i, item := range r.Items {
		if strings.TrimSpace(item.Description) == "" {
			return apperr.Required(fmt.Sprintf("items[%d].description", i))
		}
		if item.Amount < 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].amount", i), "must not be negative")
		}
		itemTotal += item.Amount
	}
	if r.Amount == 0 {
		r.Amount = itemTotal
	}
	r.Amount = round2(r.Amount)
	if r.Amount <= 0 {
		return apperr.Invalid("amount", "must be positive")
	}

	appt, err := s.appointments.GetAppointment(ctx, r.AppointmentID)
	if err != nil {
		return err
	}
	r.UHID = appt.UHID
	if r.PatientName == "" {
		r.PatientName = appt.PatientName
	}

	if r.ReceiptNumber, err = s.ids.Next(ctx, sequence.KindReceipt); err != nil {
		return err
	}
	if err := s.receipts.Create(ctx, r); err != nil {
		return err
	}
	if err := s.appointments.LinkReceipt(ctx, r.AppointmentID, r.ID); err != nil {
		if derr := s.receipts.Delete(ctx, r.ID); derr != nil {
			zerolog.Ctx(ctx).Error().Err(derr).Str("receipt", r.ReceiptNumber).Msg("remove unlinked receipt")
		}
		return fmt.Errorf("link receipt to appointment: %w", err)
	}
	s.publish(ctx, "receipt.created", "receipt", r.ID, r)
	return nil
}

func (s *Service) GetReceipt(ctx context.Context, id uuid.UUID) (*Receipt, error) {
	return s.receipts.GetByID(ctx, id)
}

func (s *Service) GetReceiptByNumber(ctx context.Context, number string) (*Receipt, error) {
	return s.receipts.GetByNumber(ctx, number)
}

func (s *Service) ListReceipts(ctx context.Context, f ListFilter, limit, offset int) ([]*Receipt, int, error) {
	return s.receipts.List(ctx, f, limit, offset)
}

// DeleteReceipt removes the receipt and its back-reference. An appointment
// that is already gone is not an error.
func (s *Service) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	r, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.receipts.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.appointments.UnlinkReceipt(ctx, r.AppointmentID, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("unlink receipt: %w", err)
	}
	s.publish(ctx, "receipt.deleted", "receipt", id, nil)
	return nil
}

// -- Invoice --

// Price fills in line amounts and the invoice totals.
func (inv *Invoice) Price() error {
	var subtotal float64
	for i := range inv.Items {
		item := &inv.Items[i]
		if strings.TrimSpace(item.Description) == "" {
			return apperr.Required(fmt.Sprintf("items[%d].description", i))
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		if item.Quantity < 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.UnitPrice < 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].unitPrice", i), "must not be negative")
		}
		item.Amount = round2(float64(item.Quantity) * item.UnitPrice)
		subtotal += item.Amount
	}
	if inv.Discount < 0 {
		return apperr.Invalid("discount", "must not be negative")
	}
	if inv.Tax < 0 {
		return apperr.Invalid("tax", "must not be negative")
	}
	inv.Subtotal = round2(subtotal)
	if inv.Discount > inv.Subtotal {
		return apperr.Invalid("discount", "exceeds the subtotal")
	}
	inv.Total = round2(inv.Subtotal - inv.Discount + inv.Tax)
	return nil
}

// CreateInvoice prices, numbers and stores an invoice, then records it on
// the appointment. See CreateReceipt for the failure handling.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.AppointmentID == uuid.Nil {
		return apperr.Required("appointmentId")
	}
	if len(inv.Items) == 0 {
		return apperr.Required("items")
	}
	if err := inv.Price(); err != nil {
		return err
	}

	appt, err := s.appointments.GetAppointment(ctx, inv.AppointmentID)
	if err != nil {
		return err
	}
	inv.UHID = appt.UHID
	if inv.PatientName == "" {
		inv.PatientName = appt.PatientName
	}

	if inv.InvoiceNumber, err = s.ids.Next(ctx, sequence.KindInvoice); err != nil {
		return err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return err
	}
	if err := s.appointments.LinkInvoice(ctx, inv.AppointmentID, inv.ID); err != nil {
		if derr := s.invoices.Delete(ctx, inv.ID); derr != nil {
			zerolog.Ctx(ctx).Error().Err(derr).Str("invoice", inv.InvoiceNumber).Msg("remove unlinked invoice")
		}
		return fmt.Errorf("link invoice to appointment: %w", err)
	}
	s.publish(ctx, "invoice.created", "invoice", inv.ID, inv)
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.invoices.GetByNumber(ctx, number)
}

func (s *Service) ListInvoices(ctx context.Context, f ListFilter, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, f, limit, offset)
}

func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.appointments.UnlinkInvoice(ctx, inv.AppointmentID, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("unlink invoice: %w", err)
	}
	s.publish(ctx, "invoice.deleted", "invoice", id, nil)
	return nil
}
