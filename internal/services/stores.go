package services

import (
	"context"
	"time"

	"hospital-web-server/internal/models"
)

// TransitionPayload carries the trigger input submitted with a status change
// request. Reason applies to rejections; the remaining fields apply to
// completions.
type TransitionPayload struct {
	Reason       string              `json:"reason"`
	Diagnosis    string              `json:"diagnosis"`
	Treatment    string              `json:"treatment"`
	Notes        string              `json:"notes"`
	Prescription []PrescriptionInput `json:"prescription"`
}

// PrescriptionInput is one prescription line as submitted by the doctor UI.
// MedicationID is empty for a manual entry not tied to inventory.
type PrescriptionInput struct {
	MedicationID string `json:"medicationId"`
	Medicine     string `json:"medicine"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Usage        string `json:"usage"`
	Notes        string `json:"notes"`
	Quantity     int    `json:"quantity"`
}

// TransitionResult is the outcome of a committed status change.
type TransitionResult struct {
	Status          models.AppointmentStatus `json:"status"`
	MedicalRecordID string                   `json:"medicalRecordId,omitempty"`
}

// StatusExtra carries the columns updated alongside a status change.
type StatusExtra struct {
	RejectionReason string
	MedicalRecordID string
}

// RescheduleInput is the new slot requested for an appointment.
type RescheduleInput struct {
	AppointmentDate time.Time
	StartTime       string
	EndTime         string
	Notes           string
}

// AppointmentStore holds appointment records keyed by id.
type AppointmentStore interface {
	Get(ctx context.Context, id string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, extra StatusExtra) error

	// Reschedule moves the appointment to the given slot and marks it
	// rescheduled in the same write.
	Reschedule(ctx context.Context, id string, input RescheduleInput) error
}

// MedicalRecordStore persists clinical records.
type MedicalRecordStore interface {
	Create(ctx context.Context, record *models.MedicalRecord) (string, error)
}

// StockReduction is one line of a batch decrement request.
type StockReduction struct {
	MedicationID string
	Quantity     int
}

// StockLedger holds per-medication available quantity.
type StockLedger interface {
	GetMedications(ctx context.Context, ids []string) (map[string]*models.Medication, error)

	// ReduceStock decrements every entry or none. When any single reduction
	// exceeds current stock it returns *InsufficientStockError and leaves
	// all quantities unchanged.
	ReduceStock(ctx context.Context, reductions []StockReduction) error
}
