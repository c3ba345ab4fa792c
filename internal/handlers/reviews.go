package handlers

import (
	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewHandler handles doctor review threads.
type ReviewHandler struct {
	DB *gorm.DB
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

// CreateReviewRequest represents the request body for posting a review.
type CreateReviewRequest struct {
	DoctorID string `json:"doctorId" binding:"required,uuid"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Content  string `json:"content" binding:"required"`
}

// CreateReview handles a patient posting a review for a doctor.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	// Verify doctor exists and is a doctor
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}

	review := models.Review{
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Rating:    req.Rating,
		Content:   req.Content,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		utils.InternalServerError(c, "Failed to create review: "+err.Error())
		return
	}

	utils.Created(c, "Review created successfully", review)
}

// GetReviewsForDoctor handles listing a doctor's top-level reviews with replies.
func (h *ReviewHandler) GetReviewsForDoctor(c *gin.Context) {
	doctorIDStr := c.Param("doctorId")
	if _, err := uuid.Parse(doctorIDStr); err != nil {
		utils.BadRequest(c, "Invalid Doctor ID format")
		return
	}

	var reviews []models.Review
	if err := h.DB.Preload("Replies").
		Where("doctor_id = ? AND (parent_id = '' OR parent_id IS NULL)", doctorIDStr).
		Order("created_at desc").Find(&reviews).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reviews: "+err.Error())
		return
	}

	utils.Success(c, "Reviews fetched successfully", reviews)
}

// ReplyToReviewRequest represents the request body for replying to a review.
type ReplyToReviewRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReplyToReview handles a doctor or admin replying within a review thread.
func (h *ReviewHandler) ReplyToReview(c *gin.Context) {
	reviewIDStr := c.Param("id")
	if _, err := uuid.Parse(reviewIDStr); err != nil {
		utils.BadRequest(c, "Invalid Review ID format")
		return
	}

	var req ReplyToReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var parent models.Review
	if err := h.DB.First(&parent, "id = ?", reviewIDStr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Review not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if parent.ParentID != "" {
		utils.BadRequest(c, "Replies can only be posted on top-level reviews")
		return
	}

	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RoleDoctor && userID != parent.DoctorID {
		utils.Forbidden(c, "Doctors can only reply to reviews about themselves.")
		return
	}
	if userRole == models.RolePatient && userID != parent.PatientID {
		utils.Forbidden(c, "Patients can only reply within their own review threads.")
		return
	}

	reply := models.Review{
		DoctorID: parent.DoctorID,
		ParentID: parent.ID,
		Content:  req.Content,
	}
	if userRole == models.RolePatient {
		reply.PatientID = userID
	}
	if err := h.DB.Create(&reply).Error; err != nil {
		utils.InternalServerError(c, "Failed to create reply: "+err.Error())
		return
	}

	utils.Created(c, "Reply created successfully", reply)
}
