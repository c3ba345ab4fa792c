package handlers

import (
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MedicationHandler handles medication inventory administration.
type MedicationHandler struct {
	DB *gorm.DB
}

// NewMedicationHandler creates a new MedicationHandler.
func NewMedicationHandler(db *gorm.DB) *MedicationHandler {
	return &MedicationHandler{DB: db}
}

// GetMedications handles listing the medication inventory.
// Doctors consult this while writing prescriptions.
func (h *MedicationHandler) GetMedications(c *gin.Context) {
	var medications []models.Medication
	if err := h.DB.Order("name asc").Find(&medications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medications: "+err.Error())
		return
	}
	utils.Success(c, "Medications fetched successfully", medications)
}

// GetMedicationByID handles fetching a single medication.
func (h *MedicationHandler) GetMedicationByID(c *gin.Context) {
	medicationIDStr := c.Param("id")
	if _, err := uuid.Parse(medicationIDStr); err != nil {
		utils.BadRequest(c, "Invalid Medication ID format")
		return
	}

	var medication models.Medication
	if err := h.DB.First(&medication, "id = ?", medicationIDStr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medication not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Medication fetched successfully", medication)
}

// CreateMedicationRequest represents the request body for adding a medication.
type CreateMedicationRequest struct {
	Name          string `json:"name" binding:"required"`
	Unit          string `json:"unit"`
	Description   string `json:"description"`
	StockQuantity int    `json:"stockQuantity" binding:"gte=0"`
}

// CreateMedication handles adding a medication to the inventory (admin).
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req CreateMedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	medication := models.Medication{
		Name:          req.Name,
		Unit:          req.Unit,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
	}
	if err := h.DB.Create(&medication).Error; err != nil {
		utils.InternalServerError(c, "Failed to create medication: "+err.Error())
		return
	}

	utils.Created(c, "Medication created successfully", medication)
}

// RestockMedicationRequest represents the request body for restocking.
type RestockMedicationRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// RestockMedication handles adding stock to a medication (admin).
// Stock is only ever decremented by the appointment completion transaction.
func (h *MedicationHandler) RestockMedication(c *gin.Context) {
	medicationIDStr := c.Param("id")
	if _, err := uuid.Parse(medicationIDStr); err != nil {
		utils.BadRequest(c, "Invalid Medication ID format")
		return
	}

	var req RestockMedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	result := h.DB.Model(&models.Medication{}).Where("id = ?", medicationIDStr).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", req.Quantity))
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to restock medication: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Medication not found")
		return
	}

	var medication models.Medication
	if err := h.DB.First(&medication, "id = ?", medicationIDStr).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	utils.Success(c, "Medication restocked successfully", medication)
}
