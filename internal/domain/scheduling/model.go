package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeNew       = "New"
	TypeRevisited = "Revisited"
)

const (
	StatusScheduled = "scheduled"
	StatusCheckedIn = "checked-in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusCheckedIn: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

var validTypes = map[string]bool{
	TypeNew:       true,
	TypeRevisited: true,
}

var validPaymentStatuses = map[string]bool{
	"pending":  true,
	"paid":     true,
	"partial":  true,
	"waived":   true,
	"refunded": true,
}

// Vitals are recorded at check-in and may be updated on their own.
type Vitals struct {
	BloodPressure string   `db:"blood_pressure" json:"bloodPressure,omitempty"`
	Pulse         *int     `db:"pulse" json:"pulse,omitempty"`
	Temperature   *float64 `db:"temperature" json:"temperature,omitempty"`
	Weight        *float64 `db:"weight" json:"weight,omitempty"`
	Height        *float64 `db:"height" json:"height,omitempty"`
	SpO2          *int     `db:"spo2" json:"spo2,omitempty"`
}

// Appointment is one visit. UHID identifies the patient across visits,
// AppID is the visit's display number.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	AppID           string     `db:"app_id" json:"appId"`
	UHID            string     `db:"uhid" json:"uhid"`
	AppointmentType string     `db:"appointment_type" json:"appointmentType"`
	BranchID        *uuid.UUID `db:"branch_id" json:"branchId,omitempty"`
	DentistID       *uuid.UUID `db:"dentist_id" json:"dentistId,omitempty"`

	PatientName string     `db:"patient_name" json:"patientName"`
	Gender      string     `db:"gender" json:"gender,omitempty"`
	Age         *int       `db:"age" json:"age,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dob,omitempty"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	Email       string     `db:"email" json:"email,omitempty"`
	Address     string     `db:"address" json:"address,omitempty"`

	Vitals

	AppointmentDate *time.Time `db:"appointment_date" json:"appointmentDate,omitempty"`
	TimeSlot        string     `db:"time_slot" json:"timeSlot,omitempty"`
	ChiefComplaint  string     `db:"chief_complaint" json:"chiefComplaint,omitempty"`
	Status          string     `db:"status" json:"status"`

	ConsultationFee *float64 `db:"consultation_fee" json:"consultationFee,omitempty"`
	PaymentMode     string   `db:"payment_mode" json:"paymentMode,omitempty"`
	PaymentStatus   string   `db:"payment_status" json:"paymentStatus,omitempty"`

	Receipts        []uuid.UUID `db:"receipts" json:"receipts"`
	Invoices        []uuid.UUID `db:"invoices" json:"invoices"`
	ReceiptGenerate bool        `db:"receipt_generate" json:"receiptGenerate"`
	InvoiceGenerate bool        `db:"invoice_generate" json:"invoiceGenerate"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsNew reports whether the visit counts as a new patient.
func (a *Appointment) IsNew() bool {
	return a.AppointmentType == TypeNew
}

// carryForward fills empty demographics from an earlier visit of the same
// patient.
func (a *Appointment) carryForward(prev *Appointment) {
	if a.PatientName == "" {
		a.PatientName = prev.PatientName
	}
	if a.Gender == "" {
		a.Gender = prev.Gender
	}
	if a.Age == nil {
		a.Age = prev.Age
	}
	if a.DateOfBirth == nil {
		a.DateOfBirth = prev.DateOfBirth
	}
	if a.Phone == "" {
		a.Phone = prev.Phone
	}
	if a.Email == "" {
		a.Email = prev.Email
	}
	if a.Address == "" {
		a.Address = prev.Address
	}
	if a.BranchID == nil {
		a.BranchID = prev.BranchID
	}
}
