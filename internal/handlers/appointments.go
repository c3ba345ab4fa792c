package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hospital-web-server/internal/config"
	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/services"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB           *gorm.DB
	Appointments *services.AppointmentService
	Cfg          *config.Config
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, appointments *services.AppointmentService, cfg *config.Config) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Appointments: appointments, Cfg: cfg}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID        string    `json:"doctorId" binding:"required,uuid"`
	PatientID       string    `json:"patientId" binding:"required,uuid"` // Should be set from authenticated user (patient)
	ServiceID       string    `json:"serviceId"`
	SpecialtyID     string    `json:"specialtyId"`
	AppointmentDate time.Time `json:"appointmentDate" binding:"required"`
	StartTime       string    `json:"startTime" binding:"required"`
	EndTime         string    `json:"endTime" binding:"required"`
	Reason          string    `json:"reason" binding:"required"`
	Notes           string    `json:"notes"`
}

// CreateAppointment handles booking a new appointment.
// Typically initiated by a patient; the appointment starts out pending.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientIDStr, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Patient ID not found in token")
		return
	}
	requestingUserRole, _ := middleware.GetUserRoleFromContext(c)
	if requestingUserRole == models.RolePatient && patientIDStr != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		utils.BadRequest(c, "Invalid Patient ID format")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		utils.BadRequest(c, "Invalid Doctor ID format")
		return
	}

	// Verify doctor exists and is a doctor
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}
	// Verify patient exists
	var patient models.User
	if err := h.DB.Where("id = ? AND role = ?", patientID, models.RolePatient).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	if req.AppointmentDate.Before(time.Now().Truncate(24 * time.Hour)) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	appointment := models.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ServiceID:       req.ServiceID,
		SpecialtyID:     req.SpecialtyID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Reason:          req.Reason,
		Notes:           req.Notes,
		Status:          models.StatusPending, // Default status
	}

	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user (patient or doctor).
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userIDStr, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	var err error

	query := h.DB.Preload("Patient").Preload("Doctor").Order("appointment_date asc, start_time asc")

	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userIDStr).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userIDStr).Find(&appointments).Error
	case models.RoleAdmin: // Admins can see all appointments
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments this way. Role: "+string(userRole))
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by involved patient, doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	appointmentID, err := uuid.Parse(appointmentIDStr)
	if err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userIDStr, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isPatientInvolved := userIDStr == appointment.PatientID
	isDoctorInvolved := userIDStr == appointment.DoctorID

	if userRole != models.RoleAdmin && !isPatientInvolved && !isDoctorInvolved {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// GetAppointmentStatus handles fetching just the stored status of an appointment.
// The client treats this as the authoritative read projection after a transition.
func (h *AppointmentHandler) GetAppointmentStatus(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	if _, err := uuid.Parse(appointmentIDStr); err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	status, err := h.Appointments.GetAppointmentStatus(c.Request.Context(), appointmentIDStr)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Appointment status fetched successfully", gin.H{"status": status})
}

// UpdateAppointmentStatusRequest represents the request body for a status transition.
// Reason is required when rejecting; the clinical fields apply when completing.
type UpdateAppointmentStatusRequest struct {
	Status       models.AppointmentStatus     `json:"status" binding:"required"`
	Reason       string                       `json:"reason"`
	Diagnosis    string                       `json:"diagnosis"`
	Treatment    string                       `json:"treatment"`
	Notes        string                       `json:"notes"`
	Prescription []services.PrescriptionInput `json:"prescription"`
}

// UpdateAppointmentStatus handles a doctor-facing status transition request.
// Legality is decided by the appointment state machine; completing an
// appointment additionally runs the completion transaction.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	appointmentID, err := uuid.Parse(appointmentIDStr)
	if err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userIDStr, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	canUpdate := userRole == models.RoleAdmin ||
		(userRole == models.RoleDoctor && userIDStr == appointment.DoctorID)
	if !canUpdate {
		utils.Forbidden(c, "You are not authorized to update this appointment's status.")
		return
	}

	payload := services.TransitionPayload{
		Reason:       req.Reason,
		Diagnosis:    req.Diagnosis,
		Treatment:    req.Treatment,
		Notes:        req.Notes,
		Prescription: req.Prescription,
	}

	// Completion decrements stock; bound the whole request so a hung call
	// surfaces as an error instead of an open-ended wait.
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Cfg.CompletionTimeout())
	defer cancel()

	result, err := h.Appointments.RequestTransition(ctx, appointmentIDStr, req.Status, payload)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", result)
}

// CancelAppointment handles a patient withdrawing their booking.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	appointmentID, err := uuid.Parse(appointmentIDStr)
	if err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userIDStr, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userIDStr != appointment.PatientID {
		utils.Forbidden(c, "Patients can only cancel their own appointments.")
		return
	}

	result, err := h.Appointments.Cancel(c.Request.Context(), appointmentIDStr)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", result)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	NewAppointmentDate time.Time `json:"newAppointmentDate" binding:"required"`
	StartTime          string    `json:"startTime" binding:"required"`
	EndTime            string    `json:"endTime" binding:"required"`
	Notes              string    `json:"notes"` // Optional notes for rescheduling
}

// RescheduleAppointment handles moving an appointment to a new slot.
// The appointment re-enters the lifecycle as rescheduled and awaits a fresh
// confirmation or rejection.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	appointmentIDStr := c.Param("id")
	appointmentID, err := uuid.Parse(appointmentIDStr)
	if err != nil {
		utils.BadRequest(c, "Invalid Appointment ID format")
		return
	}

	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.NewAppointmentDate.Before(time.Now().Truncate(24 * time.Hour)) {
		utils.BadRequest(c, "New appointment date must be in the future.")
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userIDStr, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	canReschedule := false
	if userRole == models.RoleAdmin {
		canReschedule = true
	} else if userRole == models.RoleDoctor && userIDStr == appointment.DoctorID {
		canReschedule = true
	} else if userRole == models.RolePatient && userIDStr == appointment.PatientID {
		canReschedule = true
	}
	if !canReschedule {
		utils.Forbidden(c, "You are not authorized to reschedule this appointment.")
		return
	}

	result, err := h.Appointments.Reschedule(c.Request.Context(), appointmentIDStr, services.RescheduleInput{
		AppointmentDate: req.NewAppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Notes:           req.Notes,
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", result)
}

// respondTransitionError maps the service error taxonomy onto HTTP responses.
// A partial failure gets a distinct payload so the client can show a
// reconciliation state instead of a generic retry prompt.
func respondTransitionError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var stockErr *services.InsufficientStockError
	var partialErr *services.PartialFailureError

	switch {
	case errors.As(err, &partialErr):
		utils.ErrorWithDetails(c, http.StatusInternalServerError, partialErr.Error(), gin.H{
			"appointmentId":          partialErr.AppointmentID,
			"medicalRecordId":        partialErr.MedicalRecordID,
			"reconciliationRequired": true,
		})
	case errors.As(err, &stockErr):
		utils.ErrorWithDetails(c, http.StatusConflict, stockErr.Error(), stockErr.Shortages)
	case errors.As(err, &validationErr):
		utils.ErrorWithDetails(c, http.StatusBadRequest, validationErr.Error(), validationErr.Fields)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.NotFound(c, err.Error())
	default:
		utils.InternalServerError(c, "Failed to update appointment status: "+err.Error())
	}
}
