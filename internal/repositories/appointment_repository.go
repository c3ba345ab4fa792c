package repositories

import (
	"context"
	"errors"
	"fmt"

	"hospital-web-server/internal/models"
	"hospital-web-server/internal/services"

	"gorm.io/gorm"
)

// AppointmentRepository is the gorm-backed AppointmentStore.
type AppointmentRepository struct {
	DB *gorm.DB
}

// NewAppointmentRepository creates a new AppointmentRepository.
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

// Get fetches an appointment by id.
func (r *AppointmentRepository) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.DB.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appointment %s: %w", id, services.ErrNotFound)
		}
		return nil, err
	}
	return &appointment, nil
}

// UpdateStatus writes the new status and any columns that ride along with it.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, extra services.StatusExtra) error {
	updates := map[string]interface{}{"status": status}
	if extra.RejectionReason != "" {
		updates["rejection_reason"] = extra.RejectionReason
	}
	if extra.MedicalRecordID != "" {
		updates["medical_record_id"] = extra.MedicalRecordID
	}

	result := r.DB.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// Reschedule moves the appointment to the new slot and flips its status to
// rescheduled in one write.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id string, input services.RescheduleInput) error {
	updates := map[string]interface{}{
		"appointment_date": input.AppointmentDate,
		"start_time":       input.StartTime,
		"end_time":         input.EndTime,
		"status":           models.StatusRescheduled,
	}
	if input.Notes != "" {
		updates["notes"] = input.Notes
	}

	result := r.DB.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", id, services.ErrNotFound)
	}
	return nil
}
