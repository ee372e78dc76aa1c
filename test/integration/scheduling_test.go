package integration

import (
	"context"
	"testing"

	"github.com/dentalcare/clinic/internal/domain/billing"
	"github.com/dentalcare/clinic/internal/domain/clinical"
	"github.com/dentalcare/clinic/internal/domain/scheduling"
	"github.com/dentalcare/clinic/internal/platform/sequence"
	"github.com/dentalcare/clinic/pkg/apperr"
)

type clinicServices struct {
	scheduling *scheduling.Service
	clinical   *clinical.Service
	billing    *billing.Service
}

func newClinicServices() *clinicServices {
	pool := globalDB.Pool
	ids := sequence.NewGenerator(sequence.NewPGStore(pool), sequence.PGFloors(pool))
	sched := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), ids, nil)
	return &clinicServices{
		scheduling: sched,
		clinical: clinical.NewService(clinical.NewExaminationRepoPG(pool), clinical.NewTreatmentProcedureRepoPG(pool),
			clinical.NewPlanRepoPG(pool), clinical.NewPrescriptionRepoPG(pool), sched, nil),
		billing: billing.NewService(billing.NewReceiptRepoPG(pool), billing.NewInvoiceRepoPG(pool), sched, ids, nil),
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("appt")
	createTenantSchema(t, ctx, tenantID)
	svc := newClinicServices()

	// Records from before the counter existed.
	insertAppointment(t, ctx, tenantID, "7", "UHID-012", "New", fixedNow)

	var first *scheduling.Appointment
	t.Run("NewContinuesFromStoredRecords", func(t *testing.T) {
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			first = &scheduling.Appointment{PatientName: "Asha Rao", Gender: "female", Phone: "9800000001", ReceiptGenerate: true}
			return svc.scheduling.CreateAppointment(ctx, first)
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if first.UHID != "UHID-013" || first.AppID != "8" {
			t.Errorf("got uhid=%s appId=%s, want UHID-013 and 8", first.UHID, first.AppID)
		}
	})

	t.Run("ClientBillingFlagsIgnored", func(t *testing.T) {
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			got, err := svc.scheduling.GetAppointment(ctx, first.ID)
			if err != nil {
				return err
			}
			if got.ReceiptGenerate || len(got.Receipts) != 0 {
				t.Errorf("stored receiptGenerate=%v receipts=%v, want false and empty", got.ReceiptGenerate, got.Receipts)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("NewWithUHIDRejected", func(t *testing.T) {
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			return svc.scheduling.CreateAppointment(ctx, &scheduling.Appointment{PatientName: "Vikram", UHID: "UHID-014"})
		})
		if !apperr.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("RevisitCarriesForward", func(t *testing.T) {
		var revisit *scheduling.Appointment
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			revisit = &scheduling.Appointment{AppointmentType: scheduling.TypeRevisited, UHID: first.UHID}
			return svc.scheduling.CreateAppointment(ctx, revisit)
		})
		if err != nil {
			t.Fatalf("revisit: %v", err)
		}
		if revisit.PatientName != "Asha Rao" || revisit.Phone != "9800000001" {
			t.Errorf("demographics not carried forward: %+v", revisit)
		}
		if revisit.AppID != "9" {
			t.Errorf("appId = %s, want 9", revisit.AppID)
		}
	})

	t.Run("ReceiptAndInvoiceLinkBack", func(t *testing.T) {
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			r := &billing.Receipt{AppointmentID: first.ID, Amount: 500}
			if err := svc.billing.CreateReceipt(ctx, r); err != nil {
				return err
			}
			if r.ReceiptNumber != "RCT-00001" {
				t.Errorf("receipt number = %s, want RCT-00001", r.ReceiptNumber)
			}
			inv := &billing.Invoice{AppointmentID: first.ID, Items: []billing.InvoiceItem{
				{Description: "Scaling", Quantity: 1, UnitPrice: 1200},
			}}
			if err := svc.billing.CreateInvoice(ctx, inv); err != nil {
				return err
			}

			got, err := svc.scheduling.GetAppointment(ctx, first.ID)
			if err != nil {
				return err
			}
			if !got.ReceiptGenerate || len(got.Receipts) != 1 || got.Receipts[0] != r.ID {
				t.Errorf("receipt back-ref: generate=%v receipts=%v", got.ReceiptGenerate, got.Receipts)
			}
			if !got.InvoiceGenerate || len(got.Invoices) != 1 || got.Invoices[0] != inv.ID {
				t.Errorf("invoice back-ref: generate=%v invoices=%v", got.InvoiceGenerate, got.Invoices)
			}

			if err := svc.billing.DeleteReceipt(ctx, r.ID); err != nil {
				return err
			}
			got, err = svc.scheduling.GetAppointment(ctx, first.ID)
			if err != nil {
				return err
			}
			if len(got.Receipts) != 0 {
				t.Errorf("receipt still linked after delete: %v", got.Receipts)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("ExaminationRoundTrip", func(t *testing.T) {
		err := withTenantConn(ctx, globalDB.Pool, tenantID, func(ctx context.Context) error {
			exam := &clinical.Examination{
				AppointmentID: first.ID,
				Treatments: []clinical.TreatmentInput{
					{ToothName: "Lower Right Third Molar", DentalCondition: "Tooth Decay"},
				},
			}
			if err := svc.clinical.CreateExamination(ctx, exam); err != nil {
				return err
			}
			got, err := svc.clinical.GetExamination(ctx, exam.ID)
			if err != nil {
				return err
			}
			if got.UHID != first.UHID {
				t.Errorf("uhid = %s, want %s", got.UHID, first.UHID)
			}
			if len(got.TeethDetails) != 1 || got.TeethDetails[0].ToothNumber != 32 ||
				got.TeethDetails[0].DentalCondition != "Tooth Decay" {
				t.Errorf("teethDetails = %+v, want tooth 32 Tooth Decay", got.TeethDetails)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})
}
