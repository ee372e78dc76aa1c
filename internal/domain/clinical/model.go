package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Examination records what the dentist found at a visit.
type Examination struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	AppointmentID  uuid.UUID        `db:"appointment_id" json:"appointmentId"`
	UHID           string           `db:"uhid" json:"uhid"`
	DentistID      *uuid.UUID       `db:"dentist_id" json:"dentistId,omitempty"`
	Chart          string           `db:"chart" json:"chart"`
	ChiefComplaint string           `db:"chief_complaint" json:"chiefComplaint,omitempty"`
	Findings       string           `db:"findings" json:"findings,omitempty"`
	Notes          string           `db:"notes" json:"notes,omitempty"`
	Treatments     []TreatmentInput `db:"-" json:"treatments,omitempty"`
	TeethDetails   []ConditionEntry `db:"teeth_details" json:"teethDetails"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// TreatmentProcedure is work carried out on the patient's teeth.
type TreatmentProcedure struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	AppointmentID uuid.UUID        `db:"appointment_id" json:"appointmentId"`
	UHID          string           `db:"uhid" json:"uhid"`
	DentistID     *uuid.UUID       `db:"dentist_id" json:"dentistId,omitempty"`
	Chart         string           `db:"chart" json:"chart"`
	Procedure     string           `db:"procedure_name" json:"procedure"`
	Materials     string           `db:"materials" json:"materials,omitempty"`
	Notes         string           `db:"notes" json:"notes,omitempty"`
	Status        string           `db:"status" json:"status"`
	Cost          *float64         `db:"cost" json:"cost,omitempty"`
	Treatments    []TreatmentInput `db:"-" json:"treatments,omitempty"`
	TeethDetails  []ConditionEntry `db:"teeth_details" json:"teethDetails"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
}

// Plan is a proposed course of treatment for a patient.
type Plan struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	AppointmentID *uuid.UUID       `db:"appointment_id" json:"appointmentId,omitempty"`
	UHID          string           `db:"uhid" json:"uhid"`
	DentistID     *uuid.UUID       `db:"dentist_id" json:"dentistId,omitempty"`
	Chart         string           `db:"chart" json:"chart"`
	EstimatedCost *float64         `db:"estimated_cost" json:"estimatedCost,omitempty"`
	Notes         string           `db:"notes" json:"notes,omitempty"`
	Status        string           `db:"status" json:"status"`
	Treatments    []TreatmentInput `db:"-" json:"treatments,omitempty"`
	TeethDetails  []ConditionEntry `db:"teeth_details" json:"teethDetails"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updatedAt"`
}

type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type Prescription struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointmentId"`
	UHID          string     `db:"uhid" json:"uhid"`
	DentistID     *uuid.UUID `db:"dentist_id" json:"dentistId,omitempty"`
	Medicines     []Medicine `db:"medicines" json:"medicines"`
	Advice        string     `db:"advice" json:"advice,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

var validProcedureStatuses = map[string]bool{
	"planned": true, "in-progress": true, "completed": true, "cancelled": true,
}

var validPlanStatuses = map[string]bool{
	"proposed": true, "accepted": true, "in-progress": true, "completed": true, "declined": true,
}
