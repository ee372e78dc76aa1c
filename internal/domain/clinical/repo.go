package clinical

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a listing of clinical records. Status only applies to
// procedures and plans.
type ListFilter struct {
	AppointmentID *uuid.UUID
	UHID          string
	DentistID     *uuid.UUID
	Status        string
}

type ExaminationRepository interface {
	Create(ctx context.Context, e *Examination) error
	GetByID(ctx context.Context, id uuid.UUID) (*Examination, error)
	Update(ctx context.Context, e *Examination) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Examination, int, error)
}

type TreatmentProcedureRepository interface {
	Create(ctx context.Context, p *TreatmentProcedure) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentProcedure, error)
	Update(ctx context.Context, p *TreatmentProcedure) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*TreatmentProcedure, int, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Plan, int, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error)
}
