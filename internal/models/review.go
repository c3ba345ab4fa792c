package models

// Review represents a patient's review of a doctor. A review with a ParentID
// is a reply within the thread and carries no rating.
type Review struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	DoctorID  string `gorm:"size:36;index" json:"doctorId"`
	ParentID  string `gorm:"size:36;index" json:"parentId,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	Content   string `gorm:"type:text" json:"content"`

	// Relations
	Patient User     `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User     `gorm:"foreignKey:DoctorID" json:"-"`
	Replies []Review `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
}
