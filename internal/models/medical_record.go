package models

// MedicalRecord represents the clinical outcome of a completed appointment
type MedicalRecord struct {
	BaseModel
	PatientID     string `gorm:"size:36;index" json:"patientId"`
	DoctorID      string `gorm:"size:36;index" json:"doctorId"`
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`
	Diagnosis     string `gorm:"type:text;not null" json:"diagnosis"`
	Treatment     string `gorm:"type:text" json:"treatment"`
	Notes         string `gorm:"type:text" json:"notes"`

	// Relations
	Patient      User               `gorm:"foreignKey:PatientID" json:"-"`
	Doctor       User               `gorm:"foreignKey:DoctorID" json:"-"`
	Prescription []PrescriptionLine `gorm:"foreignKey:MedicalRecordID" json:"prescription"`
}

// PrescriptionLine represents one medication entry within a medical record's
// prescription. MedicationID is empty for manual entries not tied to inventory.
type PrescriptionLine struct {
	BaseModel
	MedicalRecordID string `gorm:"size:36;index;not null" json:"medicalRecordId"`
	MedicationID    string `gorm:"size:36;index" json:"medicationId,omitempty"`
	Medicine        string `gorm:"size:255;not null" json:"medicine"`
	Dosage          string `gorm:"size:100" json:"dosage,omitempty"`
	Frequency       string `gorm:"size:100" json:"frequency,omitempty"`
	Duration        string `gorm:"size:100" json:"duration,omitempty"`
	Usage           string `gorm:"size:255" json:"usage,omitempty"`
	Notes           string `gorm:"type:text" json:"notes,omitempty"`
	Quantity        int    `json:"quantity"`
}
