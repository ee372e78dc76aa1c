package billing

import (
	"time"

	"github.com/google/uuid"
)

var validPaymentModes = map[string]bool{
	"cash": true, "card": true, "upi": true, "cheque": true, "bank-transfer": true, "insurance": true,
}

type ReceiptItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Receipt acknowledges a payment taken against an appointment.
type Receipt struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AppointmentID uuid.UUID     `db:"appointment_id" json:"appointmentId"`
	ReceiptNumber string        `db:"receipt_number" json:"receiptNumber"`
	UHID          string        `db:"uhid" json:"uhid"`
	PatientName   string        `db:"patient_name" json:"patientName,omitempty"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentMode   string        `db:"payment_mode" json:"paymentMode"`
	Items         []ReceiptItem `db:"items" json:"items"`
	Notes         string        `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
}

// Invoice itemises the charges of an appointment.
type Invoice struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AppointmentID uuid.UUID     `db:"appointment_id" json:"appointmentId"`
	InvoiceNumber string        `db:"invoice_number" json:"invoiceNumber"`
	UHID          string        `db:"uhid" json:"uhid"`
	PatientName   string        `db:"patient_name" json:"patientName,omitempty"`
	Items         []InvoiceItem `db:"items" json:"items"`
	Subtotal      float64       `db:"subtotal" json:"subtotal"`
	Discount      float64       `db:"discount" json:"discount"`
	Tax           float64       `db:"tax" json:"tax"`
	Total         float64       `db:"total" json:"total"`
	Notes         string        `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}
