package handlers

import (
	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicalRecordHandler handles medical record related requests. Records are
// created exclusively by the appointment completion transaction; this
// handler only serves read projections.
type MedicalRecordHandler struct {
	DB *gorm.DB
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db}
}

// GetMedicalRecordsForPatient handles fetching medical records for a specific patient.
// Accessible by the patient themselves, doctors, or admins.
func (h *MedicalRecordHandler) GetMedicalRecordsForPatient(c *gin.Context) {
	patientIDStr := c.Param("patientId")
	if _, err := uuid.Parse(patientIDStr); err != nil {
		utils.BadRequest(c, "Invalid Patient ID format")
		return
	}

	requestingUserID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	requestingUserRole, _ := middleware.GetUserRoleFromContext(c)

	isOwnRecords := requestingUserID == patientIDStr
	if requestingUserRole != models.RoleAdmin && requestingUserRole != models.RoleDoctor && !isOwnRecords {
		utils.Forbidden(c, "You are not authorized to view these medical records")
		return
	}

	var records []models.MedicalRecord
	if err := h.DB.Preload("Prescription").Where("patient_id = ?", patientIDStr).
		Order("created_at desc").Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical records: "+err.Error())
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// GetMedicalRecordByID handles fetching a single medical record.
// Accessible by the patient it belongs to, the authoring doctor, or an admin.
func (h *MedicalRecordHandler) GetMedicalRecordByID(c *gin.Context) {
	recordIDStr := c.Param("id")
	if _, err := uuid.Parse(recordIDStr); err != nil {
		utils.BadRequest(c, "Invalid Medical Record ID format")
		return
	}

	var record models.MedicalRecord
	if err := h.DB.Preload("Prescription").First(&record, "id = ?", recordIDStr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	requestingUserID, _ := middleware.GetUserIDFromContext(c)
	requestingUserRole, _ := middleware.GetUserRoleFromContext(c)

	isPatient := requestingUserID == record.PatientID
	isAuthoringDoctor := requestingUserID == record.DoctorID
	if requestingUserRole != models.RoleAdmin && !isPatient && !isAuthoringDoctor {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}

// GetMedicalRecordForAppointment handles fetching the record linked to an appointment.
func (h *MedicalRecordHandler) GetMedicalRecordForAppointment(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	if _, err := uuid.Parse(appointmentIDStr); err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	var record models.MedicalRecord
	if err := h.DB.Preload("Prescription").First(&record, "appointment_id = ?", appointmentIDStr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "No medical record exists for this appointment")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	requestingUserID, _ := middleware.GetUserIDFromContext(c)
	requestingUserRole, _ := middleware.GetUserRoleFromContext(c)
	if requestingUserRole != models.RoleAdmin && requestingUserID != record.PatientID && requestingUserID != record.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}
