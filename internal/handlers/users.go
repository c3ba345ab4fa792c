package handlers

import (
	"net/http"
	"strings"

	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler handles user-related requests (typically admin operations).
type UserHandler struct {
	DB *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{DB: db}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=patient doctor admin"`
	Specialty string `json:"specialty"`
}

// CreateUser handles creating a new user (admin).
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	role := models.Role(req.Role)
	specialty := strings.TrimSpace(req.Specialty)
	if role == models.RoleDoctor && specialty == "" {
		utils.ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", gin.H{"specialty": "is required for doctors"})
		return
	}
	if role != models.RoleDoctor {
		specialty = ""
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      role,
		Specialty: specialty,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin). An optional role query
// parameter narrows the listing.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.Order("last_name asc, first_name asc")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitizedUsers := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitizedUsers[i] = u.Sanitize()
	}

	utils.Success(c, "Users fetched successfully", sanitizedUsers)
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
// Password changes go through a dedicated endpoint, not this one.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"` // Allow email update, ensure uniqueness
	Role      string `json:"role,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// UpdateUser handles updating a user by ID (admin).
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil { // Use ShouldBindJSON for partial updates
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Email != "" && req.Email != user.Email {
		// Check if new email is already taken
		var existingUser models.User
		if err := h.DB.Where("email = ? AND id != ?", req.Email, user.ID).First(&existingUser).Error; err == nil {
			utils.BadRequest(c, "New email is already in use")
			return
		} else if err != gorm.ErrRecordNotFound {
			utils.InternalServerError(c, "Database error checking email: "+err.Error())
			return
		}
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}
	if req.Specialty != "" {
		user.Specialty = req.Specialty
	}
	if !user.IsDoctor() {
		user.Specialty = ""
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin). A user with live
// appointments cannot be removed; the bookings must be cancelled or
// resolved first.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var liveAppointments int64
	err := h.DB.Model(&models.Appointment{}).
		Where("patient_id = ? OR doctor_id = ?", userID, userID).
		Where("status IN ?", []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRescheduled}).
		Count(&liveAppointments).Error
	if err != nil {
		utils.InternalServerError(c, "Database error checking appointments: "+err.Error())
		return
	}
	if liveAppointments > 0 {
		utils.Conflict(c, "User still has open appointments and cannot be deleted.")
		return
	}

	if err := h.DB.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete user: "+err.Error())
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

// DoctorListing is a doctor profile enriched with their review standing,
// shown to patients picking a doctor to book.
type DoctorListing struct {
	models.UserSanitized
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int64   `json:"reviewCount"`
}

// GetDoctors handles fetching all doctors, optionally filtered by
// specialty. Each listing carries the doctor's average review rating.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Where("role = ?", models.RoleDoctor).Order("last_name asc, first_name asc")
	if specialty := c.Query("specialty"); specialty != "" {
		query = query.Where("specialty = ?", specialty)
	}

	var doctors []models.User
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	listings := make([]DoctorListing, len(doctors))
	for i, doctor := range doctors {
		listings[i] = DoctorListing{UserSanitized: doctor.Sanitize()}

		// Replies do not carry a rating; only top-level reviews count.
		row := struct {
			Avg   float64
			Count int64
		}{}
		err := h.DB.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("doctor_id = ? AND (parent_id = '' OR parent_id IS NULL)", doctor.ID).
			Scan(&row).Error
		if err != nil {
			utils.InternalServerError(c, "Failed to fetch doctor ratings: "+err.Error())
			return
		}
		listings[i].AverageRating = row.Avg
		listings[i].ReviewCount = row.Count
	}

	utils.Success(c, "Doctors fetched successfully", listings)
}

// GetDoctorPatients handles fetching patients. A doctor only sees patients
// who hold an appointment with them; admins see every patient.
func (h *UserHandler) GetDoctorPatients(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	userRole, _ := middleware.GetUserRoleFromContext(c)

	var patients []models.User
	var err error
	switch userRole {
	case models.RoleDoctor:
		err = h.DB.Where("role = ?", models.RolePatient).
			Where("id IN (?)", h.DB.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", userID)).
			Find(&patients).Error
	case models.RoleAdmin:
		err = h.DB.Where("role = ?", models.RolePatient).Find(&patients).Error
	default:
		utils.Forbidden(c, "Only doctors and admins can view patient lists")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	sanitizedPatients := make([]models.UserSanitized, len(patients))
	for i, patient := range patients {
		sanitizedPatients[i] = patient.Sanitize()
	}

	utils.Success(c, "Patients fetched successfully", sanitizedPatients)
}
