package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusRejected    AppointmentStatus = "rejected"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no-show"
)

// IsValid reports whether s is one of the seven defined statuses.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled, StatusCompleted,
		StatusRejected, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether s allows no further transitions.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;index" json:"patientId"`
	DoctorID        string            `gorm:"size:36;index" json:"doctorId"`
	ServiceID       string            `gorm:"size:36" json:"serviceId,omitempty"`
	SpecialtyID     string            `gorm:"size:36" json:"specialtyId,omitempty"`
	AppointmentDate time.Time         `json:"appointmentDate"`
	StartTime       string            `gorm:"size:10" json:"startTime"`
	EndTime         string            `gorm:"size:10" json:"endTime"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason          string            `gorm:"size:255" json:"reason"`
	Notes           string            `gorm:"type:text" json:"notes"`
	RejectionReason string            `gorm:"size:255" json:"rejectionReason,omitempty"`
	MedicalRecordID string            `gorm:"size:36" json:"medicalRecordId,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
