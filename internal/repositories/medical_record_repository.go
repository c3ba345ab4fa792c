package repositories

import (
	"context"

	"hospital-web-server/internal/models"

	"gorm.io/gorm"
)

// MedicalRecordRepository is the gorm-backed MedicalRecordStore.
type MedicalRecordRepository struct {
	DB *gorm.DB
}

// NewMedicalRecordRepository creates a new MedicalRecordRepository.
func NewMedicalRecordRepository(db *gorm.DB) *MedicalRecordRepository {
	return &MedicalRecordRepository{DB: db}
}

// Create persists the record together with its prescription lines and
// returns the new record id.
func (r *MedicalRecordRepository) Create(ctx context.Context, record *models.MedicalRecord) (string, error) {
	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}
