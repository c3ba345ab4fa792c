package routes

import (
	"hospital-web-server/internal/config"
	"hospital-web-server/internal/handlers"
	"hospital-web-server/internal/middleware"
	"hospital-web-server/internal/models"
	"hospital-web-server/internal/repositories"
	"hospital-web-server/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	// Core services over their gorm-backed stores
	appointmentRepo := repositories.NewAppointmentRepository(db)
	recordRepo := repositories.NewMedicalRecordRepository(db)
	medicationRepo := repositories.NewMedicationRepository(db)
	completionService := services.NewCompletionService(recordRepo, medicationRepo, log)
	appointmentService := services.NewAppointmentService(appointmentRepo, completionService, log)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, appointmentService, cfg)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db)
	medicationHandler := handlers.NewMedicationHandler(db)
	reviewHandler := handlers.NewReviewHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes (typically admin-only)
		userRoutes := private.Group("/users")
		{
			// Special endpoint to get doctors - accessible by all authenticated users
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Special endpoint to get patients for a doctor - accessible by doctors and admins
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin)) // Only Admins
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			// Patients book for themselves; doctors/admins may book on a patient's behalf
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleDoctor, models.RoleAdmin), appointmentHandler.CreateAppointment)

			// All authenticated users can get their own appointments
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser) // Logic inside handler differentiates by role

			// Specific appointment access (Patient involved, Doctor involved, or Admin)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler

			// Authoritative status read projection
			appointmentRoutes.GET("/:id/status", appointmentHandler.GetAppointmentStatus)

			// The record created when the appointment completed
			appointmentRoutes.GET("/:id/medical-record", medicalRecordHandler.GetMedicalRecordForAppointment)

			// Doctor-facing status transitions (confirm, reject, complete, no-show)
			appointmentRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointmentStatus)

			// Patient-side cancellation of a live booking
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment) // Authorization inside handler

			// Reschedule (Doctor, Admin, Patient involved)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment) // Authorization inside handler
		}

		// Medical Record routes (read projections; creation happens via completion)
		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.GET("/patient/:patientId", medicalRecordHandler.GetMedicalRecordsForPatient) // Auth in handler
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)                       // Auth in handler
		}

		// Medication inventory routes
		medicationRoutes := private.Group("/medications")
		{
			medicationRoutes.GET("", medicationHandler.GetMedications)
			medicationRoutes.GET("/:id", medicationHandler.GetMedicationByID)

			adminMedicationRoutes := medicationRoutes.Group("")
			adminMedicationRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminMedicationRoutes.POST("", medicationHandler.CreateMedication)
				adminMedicationRoutes.PATCH("/:id/stock", medicationHandler.RestockMedication)
			}
		}

		// Review routes
		reviewRoutes := private.Group("/reviews")
		{
			reviewRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), reviewHandler.CreateReview)
			reviewRoutes.GET("/doctor/:doctorId", reviewHandler.GetReviewsForDoctor)
			reviewRoutes.POST("/:id/reply", reviewHandler.ReplyToReview) // Auth in handler
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
