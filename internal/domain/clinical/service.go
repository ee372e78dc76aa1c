package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalcare/clinic/internal/domain/scheduling"
	"github.com/dentalcare/clinic/internal/platform/websocket"
	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/tooth"
)

// AppointmentLookup resolves the visit a clinical record is attached to.
type AppointmentLookup interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Service struct {
	exams         ExaminationRepository
	procedures    TreatmentProcedureRepository
	plans         PlanRepository
	prescriptions PrescriptionRepository
	appointments  AppointmentLookup
	events        websocket.Publisher
}

func NewService(exam ExaminationRepository, proc TreatmentProcedureRepository, plan PlanRepository,
	rx PrescriptionRepository, appts AppointmentLookup, events websocket.Publisher) *Service {
	if events == nil {
		events = websocket.NopPublisher{}
	}
	return &Service{exams: exam, procedures: proc, plans: plan, prescriptions: rx, appointments: appts, events: events}
}

// attach checks the appointment exists and fills uhid and dentist from it.
func (s *Service) attach(ctx context.Context, appointmentID uuid.UUID, uhid *string, dentistID **uuid.UUID) error {
	if appointmentID == uuid.Nil {
		return apperr.Required("appointmentId")
	}
	if s.appointments == nil {
		if *uhid == "" {
			return apperr.Required("uhid")
		}
		return nil
	}
	a, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if *uhid == "" {
		*uhid = a.UHID
	} else if *uhid != a.UHID {
		return apperr.Invalid("uhid", "appointment %s belongs to %s", a.AppID, a.UHID)
	}
	if *dentistID == nil {
		*dentistID = a.DentistID
	}
	return nil
}

// teeth picks the conditions a record is saved with: expanded form rows
// when given, otherwise explicit entries, otherwise current.
func teeth(chart tooth.Chart, inputs []TreatmentInput, given, current []ConditionEntry) ([]ConditionEntry, error) {
	if inputs != nil {
		return ExpandTreatments(chart, inputs)
	}
	if given == nil {
		if current == nil {
			return []ConditionEntry{}, nil
		}
		return bare(current), nil
	}
	for i, e := range given {
		if _, ok := tooth.Name(chart, e.ToothNumber); !ok {
			return nil, apperr.Invalid(fmt.Sprintf("teethDetails[%d].toothNumber", i),
				"%d is not a tooth on the %s chart", e.ToothNumber, chart)
		}
		if strings.TrimSpace(e.DentalCondition) == "" {
			return nil, apperr.Required(fmt.Sprintf("teethDetails[%d].dentalCondition", i))
		}
	}
	return bare(given), nil
}

func describe(chartName string, entries []ConditionEntry) []ConditionEntry {
	chart, _ := tooth.ChartFor(chartName)
	return DescribeConditions(chart, entries)
}

func (s *Service) publish(ctx context.Context, typ, entity string, id uuid.UUID, data interface{}) {
	ev := websocket.NewEvent(ctx, typ, entity, id.String(), data)
	if err := s.events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", typ).Msg("publish clinical event")
	}
}

// -- Examination --

func (s *Service) CreateExamination(ctx context.Context, e *Examination) error {
	if err := s.attach(ctx, e.AppointmentID, &e.UHID, &e.DentistID); err != nil {
		return err
	}
	chart, name, err := parseChart(e.Chart)
	if err != nil {
		return err
	}
	e.Chart = name
	if e.TeethDetails, err = teeth(chart, e.Treatments, e.TeethDetails, nil); err != nil {
		return err
	}
	e.Treatments = nil
	if err := s.exams.Create(ctx, e); err != nil {
		return err
	}
	e.TeethDetails = DescribeConditions(chart, e.TeethDetails)
	s.publish(ctx, "examination.created", "examination", e.ID, e)
	return nil
}

func (s *Service) GetExamination(ctx context.Context, id uuid.UUID) (*Examination, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.TeethDetails = describe(e.Chart, e.TeethDetails)
	return e, nil
}

func (s *Service) ListExaminations(ctx context.Context, f ListFilter, limit, offset int) ([]*Examination, int, error) {
	items, total, err := s.exams.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range items {
		e.TeethDetails = describe(e.Chart, e.TeethDetails)
	}
	return items, total, nil
}

func (s *Service) UpdateExamination(ctx context.Context, e *Examination) error {
	existing, err := s.exams.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	e.AppointmentID = existing.AppointmentID
	e.UHID = existing.UHID
	if e.DentistID == nil {
		e.DentistID = existing.DentistID
	}
	if e.Chart == "" {
		e.Chart = existing.Chart
	}
	chart, name, err := parseChart(e.Chart)
	if err != nil {
		return err
	}
	e.Chart = name
	if e.TeethDetails, err = teeth(chart, e.Treatments, e.TeethDetails, existing.TeethDetails); err != nil {
		return err
	}
	e.Treatments = nil
	if err := s.exams.Update(ctx, e); err != nil {
		return err
	}
	e.CreatedAt = existing.CreatedAt
	e.TeethDetails = DescribeConditions(chart, e.TeethDetails)
	s.publish(ctx, "examination.updated", "examination", e.ID, e)
	return nil
}

func (s *Service) DeleteExamination(ctx context.Context, id uuid.UUID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "examination.deleted", "examination", id, nil)
	return nil
}

// -- Treatment Procedure --

func (s *Service) CreateTreatmentProcedure(ctx context.Context, p *TreatmentProcedure) error {
	if strings.TrimSpace(p.Procedure) == "" {
		return apperr.Required("procedure")
	}
	if p.Status == "" {
		p.Status = "completed"
	}
	if err := validateProcedure(p); err != nil {
		return err
	}
	if err := s.attach(ctx, p.AppointmentID, &p.UHID, &p.DentistID); err != nil {
		return err
	}
	chart, name, err := parseChart(p.Chart)
	if err != nil {
		return err
	}
	p.Chart = name
	if p.TeethDetails, err = teeth(chart, p.Treatments, p.TeethDetails, nil); err != nil {
		return err
	}
	p.Treatments = nil
	if err := s.procedures.Create(ctx, p); err != nil {
		return err
	}
	p.TeethDetails = DescribeConditions(chart, p.TeethDetails)
	s.publish(ctx, "treatment.created", "treatment-procedure", p.ID, p)
	return nil
}

func validateProcedure(p *TreatmentProcedure) error {
	if !validProcedureStatuses[p.Status] {
		return apperr.Invalid("status", "unknown procedure status %q", p.Status)
	}
	if p.Cost != nil && *p.Cost < 0 {
		return apperr.Invalid("cost", "must not be negative")
	}
	return nil
}

func (s *Service) GetTreatmentProcedure(ctx context.Context, id uuid.UUID) (*TreatmentProcedure, error) {
	p, err := s.procedures.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.TeethDetails = describe(p.Chart, p.TeethDetails)
	return p, nil
}

func (s *Service) ListTreatmentProcedures(ctx context.Context, f ListFilter, limit, offset int) ([]*TreatmentProcedure, int, error) {
	if f.Status != "" && !validProcedureStatuses[f.Status] {
		return nil, 0, apperr.Invalid("status", "unknown procedure status %q", f.Status)
	}
	items, total, err := s.procedures.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		p.TeethDetails = describe(p.Chart, p.TeethDetails)
	}
	return items, total, nil
}

func (s *Service) UpdateTreatmentProcedure(ctx context.Context, p *TreatmentProcedure) error {
	existing, err := s.procedures.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.AppointmentID = existing.AppointmentID
	p.UHID = existing.UHID
	if p.DentistID == nil {
		p.DentistID = existing.DentistID
	}
	if p.Procedure == "" {
		p.Procedure = existing.Procedure
	}
	if p.Status == "" {
		p.Status = existing.Status
	}
	if p.Chart == "" {
		p.Chart = existing.Chart
	}
	if err := validateProcedure(p); err != nil {
		return err
	}
	chart, name, err := parseChart(p.Chart)
	if err != nil {
		return err
	}
	p.Chart = name
	if p.TeethDetails, err = teeth(chart, p.Treatments, p.TeethDetails, existing.TeethDetails); err != nil {
		return err
	}
	p.Treatments = nil
	if err := s.procedures.Update(ctx, p); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.TeethDetails = DescribeConditions(chart, p.TeethDetails)
	s.publish(ctx, "treatment.updated", "treatment-procedure", p.ID, p)
	return nil
}

func (s *Service) DeleteTreatmentProcedure(ctx context.Context, id uuid.UUID) error {
	if err := s.procedures.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "treatment.deleted", "treatment-procedure", id, nil)
	return nil
}

// -- Plan --

func (s *Service) CreatePlan(ctx context.Context, p *Plan) error {
	if p.Status == "" {
		p.Status = "proposed"
	}
	if err := validatePlan(p); err != nil {
		return err
	}
	if p.AppointmentID != nil {
		if err := s.attach(ctx, *p.AppointmentID, &p.UHID, &p.DentistID); err != nil {
			return err
		}
	}
	if p.UHID == "" {
		return apperr.Required("uhid")
	}
	chart, name, err := parseChart(p.Chart)
	if err != nil {
		return err
	}
	p.Chart = name
	if p.TeethDetails, err = teeth(chart, p.Treatments, p.TeethDetails, nil); err != nil {
		return err
	}
	p.Treatments = nil
	if err := s.plans.Create(ctx, p); err != nil {
		return err
	}
	p.TeethDetails = DescribeConditions(chart, p.TeethDetails)
	s.publish(ctx, "plan.created", "treatment-plan", p.ID, p)
	return nil
}

func validatePlan(p *Plan) error {
	if !validPlanStatuses[p.Status] {
		return apperr.Invalid("status", "unknown plan status %q", p.Status)
	}
	if p.EstimatedCost != nil && *p.EstimatedCost < 0 {
		return apperr.Invalid("estimatedCost", "must not be negative")
	}
	return nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.TeethDetails = describe(p.Chart, p.TeethDetails)
	return p, nil
}

func (s *Service) ListPlans(ctx context.Context, f ListFilter, limit, offset int) ([]*Plan, int, error) {
	if f.Status != "" && !validPlanStatuses[f.Status] {
		return nil, 0, apperr.Invalid("status", "unknown plan status %q", f.Status)
	}
	items, total, err := s.plans.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		p.TeethDetails = describe(p.Chart, p.TeethDetails)
	}
	return items, total, nil
}

func (s *Service) UpdatePlan(ctx context.Context, p *Plan) error {
	existing, err := s.plans.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.AppointmentID = existing.AppointmentID
	p.UHID = existing.UHID
	if p.DentistID == nil {
		p.DentistID = existing.DentistID
	}
	if p.Status == "" {
		p.Status = existing.Status
	}
	if p.Chart == "" {
		p.Chart = existing.Chart
	}
	if err := validatePlan(p); err != nil {
		return err
	}
	chart, name, err := parseChart(p.Chart)
	if err != nil {
		return err
	}
	p.Chart = name
	if p.TeethDetails, err = teeth(chart, p.Treatments, p.TeethDetails, existing.TeethDetails); err != nil {
		return err
	}
	p.Treatments = nil
	if err := s.plans.Update(ctx, p); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.TeethDetails = DescribeConditions(chart, p.TeethDetails)
	s.publish(ctx, "plan.updated", "treatment-plan", p.ID, p)
	return nil
}

func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if err := s.plans.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "plan.deleted", "treatment-plan", id, nil)
	return nil
}

// -- Prescription --

func validateMedicines(meds []Medicine) error {
	if len(meds) == 0 {
		return apperr.Required("medicines")
	}
	for i, m := range meds {
		if strings.TrimSpace(m.Name) == "" {
			return apperr.Required(fmt.Sprintf("medicines[%d].name", i))
		}
	}
	return nil
}

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if err := validateMedicines(p.Medicines); err != nil {
		return err
	}
	if err := s.attach(ctx, p.AppointmentID, &p.UHID, &p.DentistID); err != nil {
		return err
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return err
	}
	s.publish(ctx, "prescription.created", "prescription", p.ID, p)
	return nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, f, limit, offset)
}

func (s *Service) UpdatePrescription(ctx context.Context, p *Prescription) error {
	existing, err := s.prescriptions.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.AppointmentID = existing.AppointmentID
	p.UHID = existing.UHID
	if p.DentistID == nil {
		p.DentistID = existing.DentistID
	}
	if p.Medicines == nil {
		p.Medicines = existing.Medicines
	}
	if err := validateMedicines(p.Medicines); err != nil {
		return err
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	s.publish(ctx, "prescription.updated", "prescription", p.ID, p)
	return nil
}

func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	if err := s.prescriptions.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "prescription.deleted", "prescription", id, nil)
	return nil
}
