package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/clinic/internal/domain/admin"
	"github.com/dentalcare/clinic/internal/domain/billing"
	"github.com/dentalcare/clinic/internal/domain/clinical"
	"github.com/dentalcare/clinic/internal/domain/scheduling"
	"github.com/dentalcare/clinic/internal/platform/db"
	"github.com/dentalcare/clinic/internal/platform/reporting"
	"github.com/dentalcare/clinic/internal/platform/sequence"
)

// stores groups every repository the server needs, backed either by the
// clinic's Postgres schema or by process memory.
type stores struct {
	pool   *pgxpool.Pool
	pinger db.Pinger

	sequences sequence.Store
	floors    map[sequence.Kind]sequence.FloorFunc

	appointments  scheduling.AppointmentRepository
	examinations  clinical.ExaminationRepository
	procedures    clinical.TreatmentProcedureRepository
	plans         clinical.PlanRepository
	prescriptions clinical.PrescriptionRepository
	receipts      billing.ReceiptRepository
	invoices      billing.InvoiceRepository
	branches      admin.BranchRepository
	services      admin.ClinicServiceRepository
	users         admin.UserRepository
	otps          admin.OTPRepository
	reports       reporting.Repository
}

func newPGStores(pool *pgxpool.Pool) *stores {
	return &stores{
		pool:          pool,
		pinger:        pool,
		sequences:     sequence.NewPGStore(pool),
		floors:        sequence.PGFloors(pool),
		appointments:  scheduling.NewAppointmentRepoPG(pool),
		examinations:  clinical.NewExaminationRepoPG(pool),
		procedures:    clinical.NewTreatmentProcedureRepoPG(pool),
		plans:         clinical.NewPlanRepoPG(pool),
		prescriptions: clinical.NewPrescriptionRepoPG(pool),
		receipts:      billing.NewReceiptRepoPG(pool),
		invoices:      billing.NewInvoiceRepoPG(pool),
		branches:      admin.NewBranchRepoPG(pool),
		services:      admin.NewClinicServiceRepoPG(pool),
		users:         admin.NewUserRepoPG(pool),
		otps:          admin.NewOTPRepoPG(pool),
		reports:       reporting.NewPGRepository(pool),
	}
}

type memPinger struct{}

func (memPinger) Ping(context.Context) error { return nil }

func newMemoryStores() *stores {
	appts := scheduling.NewAppointmentRepoMem()
	receipts := billing.NewReceiptRepoMem()
	invoices := billing.NewInvoiceRepoMem()

	load := reporting.Loader{
		Appointments: func(context.Context) ([]reporting.AppointmentRecord, error) {
			all := appts.Snapshot(scheduling.ListFilter{})
			out := make([]reporting.AppointmentRecord, 0, len(all))
			for _, a := range all {
				out = append(out, reporting.AppointmentRecord{CreatedAt: a.CreatedAt, New: a.IsNew()})
			}
			return out, nil
		},
		Payments: func(context.Context) ([]reporting.PaymentRecord, error) {
			var out []reporting.PaymentRecord
			for _, r := range receipts.All() {
				out = append(out, reporting.PaymentRecord{
					Source: reporting.SourceReceipts, Amount: r.Amount, CreatedAt: r.CreatedAt,
				})
			}
			for _, inv := range invoices.All() {
				out = append(out, reporting.PaymentRecord{
					Source: reporting.SourceInvoices, Amount: inv.Total, CreatedAt: inv.CreatedAt,
				})
			}
			return out, nil
		},
	}

	return &stores{
		pinger:        memPinger{},
		sequences:     sequence.NewMemoryStore(),
		appointments:  appts,
		examinations:  clinical.NewExaminationRepoMem(),
		procedures:    clinical.NewTreatmentProcedureRepoMem(),
		plans:         clinical.NewPlanRepoMem(),
		prescriptions: clinical.NewPrescriptionRepoMem(),
		receipts:      receipts,
		invoices:      invoices,
		branches:      admin.NewBranchRepoMem(),
		services:      admin.NewClinicServiceRepoMem(),
		users:         admin.NewUserRepoMem(),
		otps:          admin.NewOTPRepoMem(),
		reports:       reporting.NewMemoryRepository(load),
	}
}
