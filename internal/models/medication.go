package models

// Medication represents an inventory-tracked medication
type Medication struct {
	BaseModel
	Name          string `gorm:"size:255;not null" json:"name"`
	Unit          string `gorm:"size:50" json:"unit,omitempty"`
	Description   string `gorm:"type:text" json:"description,omitempty"`
	StockQuantity int    `gorm:"not null;default:0" json:"stockQuantity"`
}
