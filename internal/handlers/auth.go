package handlers

import (
	"net/http"
	"strings"
	"time"

	"hospital-web-server/internal/config"
	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const refreshTokenCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
// Specialty is required for doctors and ignored for everyone else.
type RegisterRequest struct {
	FirstName   string     `json:"firstName" binding:"required"`
	LastName    string     `json:"lastName" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required,min=8"`
	Role        string     `json:"role" binding:"required,oneof=patient doctor admin"`
	Specialty   string     `json:"specialty"`
	PhoneNumber string     `json:"phoneNumber"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
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
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Role:        role,
		Specialty:   specialty,
		PhoneNumber: req.PhoneNumber,
		DateOfBirth: req.DateOfBirth,
	}

	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Invalid email or password")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshTokenString, _, err := h.issueSession(c, &user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString, // Still include in response for backward compatibility
		User:         user.Sanitize(),
	})
}

// issueSession generates a token pair, persists the refresh token and sets
// it as an HTTP-only cookie. It returns the stored refresh token row so a
// rotation can link the revoked predecessor to it.
func (h *AuthHandler) issueSession(c *gin.Context, user *models.User) (string, string, *models.RefreshToken, error) {
	accessToken, refreshTokenString, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", nil, err
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(time.Duration(h.Cfg.JWTRefreshExpirationHours) * time.Hour),
	}
	if err := h.DB.Create(&refreshToken).Error; err != nil {
		return "", "", nil, err
	}

	c.SetCookie(
		refreshTokenCookie,
		refreshTokenString,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		h.Cfg.Environment != "development",
		true,
	)

	return accessToken, refreshTokenString, &refreshToken, nil
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented token is revoked and
// a fresh pair is issued, with the revoked row pointing at its successor.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	// Prefer the HTTP-only cookie; fall back to the request body for
	// clients that do not carry cookies.
	presented, err := c.Cookie(refreshTokenCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret, utils.TokenTypeRefresh)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND user_id = ?", presented, claims.UserID).First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Unauthorized(c, "Refresh token not found")
		} else {
			utils.InternalServerError(c, "Database error checking refresh token: "+err.Error())
		}
		return
	}
	if !storedToken.Active(time.Now()) {
		utils.Unauthorized(c, "Refresh token is expired or revoked")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		utils.InternalServerError(c, "Failed to find user associated with token: "+err.Error())
		return
	}

	newAccessToken, newRefreshTokenString, newToken, err := h.issueSession(c, &user)
	if err != nil {
		utils.InternalServerError(c, "Failed to rotate tokens: "+err.Error())
		return
	}

	storedToken.Revoke(time.Now(), newToken.ID)
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke old refresh token: "+err.Error())
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshTokenString,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the presented refresh token and clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	presented, _ := c.Cookie(refreshTokenCookie)
	if presented == "" {
		var req LogoutRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	var storedToken models.RefreshToken
	if err := h.DB.Where("token = ? AND is_revoked = ?", presented, false).First(&storedToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Already revoked or never issued; logout still succeeds.
			clearRefreshCookie(c, h.Cfg)
			utils.Success(c, "Logout successful", nil)
		} else {
			utils.InternalServerError(c, "Database error during logout: "+err.Error())
		}
		return
	}

	storedToken.Revoke(time.Now(), "")
	if err := h.DB.Save(&storedToken).Error; err != nil {
		utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
		return
	}

	clearRefreshCookie(c, h.Cfg)
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

func clearRefreshCookie(c *gin.Context, cfg *config.Config) {
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", cfg.Environment != "development", true)
}

// ProfileResponse is the authenticated user's profile together with their
// live bookings: the appointments a patient is waiting on, or the ones on a
// doctor's schedule.
type ProfileResponse struct {
	User                 models.UserSanitized `json:"user"`
	UpcomingAppointments []models.Appointment `json:"upcomingAppointments"`
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	party := "patient_id"
	if user.IsDoctor() {
		party = "doctor_id"
	}
	var upcoming []models.Appointment
	err := h.DB.
		Where(party+" = ?", user.ID).
		Where("status IN ?", []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed, models.StatusRescheduled}).
		Where("appointment_date >= ?", time.Now().Truncate(24*time.Hour)).
		Order("appointment_date asc, start_time asc").
		Find(&upcoming).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch upcoming appointments: "+err.Error())
		return
	}

	utils.Success(c, "Profile fetched successfully", ProfileResponse{
		User:                 user.Sanitize(),
		UpcomingAppointments: upcoming,
	})
}

// UpdateProfileRequest represents the request body for updating user profile.
// Email cannot be changed via this endpoint.
type UpdateProfileRequest struct {
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Address     string     `json:"address"`
	Specialty   string     `json:"specialty"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.DateOfBirth != nil {
		user.DateOfBirth = req.DateOfBirth
	}
	if req.Specialty != "" {
		if !user.IsDoctor() {
			utils.Forbidden(c, "Only doctors have a specialty.")
			return
		}
		user.Specialty = req.Specialty
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}
