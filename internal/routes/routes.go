package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-care-server/internal/config"
	"campus-care-server/internal/handlers"
	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/ws"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, hub *ws.Hub, logger *zap.Logger) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	availabilityHandler := handlers.NewAvailabilityHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, hub)
	caseHandler := handlers.NewCaseHandler(db)
	sessionNoteHandler := handlers.NewSessionNoteHandler(db)
	checkinHandler := handlers.NewCheckinHandler(db)
	socketHandler := ws.NewSocketHandler(hub, cfg, logger)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Students browse a psychologist's availability before logging in a booking.
		public.GET("/availability", availabilityHandler.GetAvailability)
	}

	// Real-time notification channel; authenticates via token query parameter.
	router.GET("/ws", socketHandler.HandleConnect)

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Directory of psychologists - accessible by all authenticated users
			userRoutes.GET("/psychologists", userHandler.GetPsychologists)

			// Students a psychologist has an open case with
			userRoutes.GET("/my-students", userHandler.GetMyStudents)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Availability management (psychologists own their calendar)
		availabilityRoutes := private.Group("/availability")
		availabilityRoutes.Use(middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin))
		{
			availabilityRoutes.POST("", availabilityHandler.CreateSlot)
			availabilityRoutes.PUT("/:id", availabilityHandler.UpdateSlot)
			availabilityRoutes.DELETE("/:id", availabilityHandler.DeleteSlot)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/calendar", appointmentHandler.GetCalendar)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID) // Authorization inside handler
			appointmentRoutes.PUT("/:id", appointmentHandler.ModifyAppointment)  // Authorization inside handler
			appointmentRoutes.PUT("/confirm/:id", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), appointmentHandler.ConfirmAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.CancelAppointment) // Either party; checked in handler
		}

		// Case routes
		caseRoutes := private.Group("/cases")
		{
			caseRoutes.POST("/book-appointment", middleware.RoleAuthMiddleware(models.RoleStudent), appointmentHandler.BookAppointment)
			caseRoutes.GET("", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), caseHandler.GetCases)
			caseRoutes.GET("/archived", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), caseHandler.GetArchivedCases)
			caseRoutes.PUT("/:id/resolve", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), caseHandler.ResolveCase)
		}

		// Session note routes
		sessionNoteRoutes := private.Group("/session-notes")
		{
			sessionNoteRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePsychologist), sessionNoteHandler.CreateSessionNote)
			sessionNoteRoutes.GET("/student/:studentId", sessionNoteHandler.GetSessionNotesForStudent) // Auth in handler
			sessionNoteRoutes.GET("/:id", sessionNoteHandler.GetSessionNoteByID)                       // Auth in handler
			sessionNoteRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), sessionNoteHandler.UpdateSessionNote)
			sessionNoteRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RolePsychologist, models.RoleAdmin), sessionNoteHandler.DeleteSessionNote)
		}

		// Wellbeing check-in routes
		checkinRoutes := private.Group("/checkins")
		{
			checkinRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleStudent), checkinHandler.CreateCheckin)
			checkinRoutes.GET("", checkinHandler.GetCheckinHistory)        // Scope resolved in handler
			checkinRoutes.GET("/summary", checkinHandler.GetCheckinSummary) // Scope resolved in handler
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
