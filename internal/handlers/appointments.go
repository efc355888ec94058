package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/scheduling"
	"campus-care-server/internal/utils"
	"campus-care-server/internal/ws"
)

// AppointmentHandler handles booking, modification, confirmation and
// cancellation of appointments, and publishes the resulting notifications.
type AppointmentHandler struct {
	DB       *gorm.DB
	Notifier ws.Publisher
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, notifier ws.Publisher) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Notifier: notifier}
}

// BookAppointmentRequest represents the request body for booking an appointment.
type BookAppointmentRequest struct {
	PsychologistID string    `json:"psychologistId" binding:"required,uuid"`
	Date           time.Time `json:"date" binding:"required"`
	Priority       string    `json:"priority" binding:"omitempty,oneof=regular emergency"`
}

// BookAppointment handles a student booking a session. The session must
// start in the future, be fully contained in an available slot of the
// psychologist, and not collide with another non-cancelled appointment.
// Booking the first appointment between a pair also materializes the case.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	studentID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Student ID not found in token")
		return
	}

	// Verify psychologist exists and has the psychologist role
	var psychologist models.User
	if err := h.DB.Where("id = ? AND role = ?", req.PsychologistID, models.RolePsychologist).
		First(&psychologist).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Psychologist not found")
		} else {
			utils.InternalServerError(c, "Database error verifying psychologist: "+err.Error())
		}
		return
	}

	var slots []models.AvailabilitySlot
	if err := h.DB.Where("psychologist_id = ?", req.PsychologistID).Find(&slots).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	if err := scheduling.ValidateBooking(req.Date, time.Now(), slots); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var existing []models.Appointment
	if err := h.DB.Where("psychologist_id = ?", req.PsychologistID).Find(&existing).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	if err := scheduling.CheckDoubleBooking(req.Date, existing, ""); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	priority := models.AppointmentPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityRegular
	}

	appointment := models.Appointment{
		StudentID:      studentID,
		PsychologistID: req.PsychologistID,
		StartTime:      req.Date,
		Status:         models.StatusPending,
		Priority:       priority,
	}

	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	// First booking between the pair materializes the case.
	caseRow := models.Case{StudentID: studentID, PsychologistID: req.PsychologistID}
	if err := h.DB.Where("student_id = ? AND psychologist_id = ?", studentID, req.PsychologistID).
		FirstOrCreate(&caseRow).Error; err != nil {
		utils.InternalServerError(c, "Failed to materialize case: "+err.Error())
		return
	}

	h.Notifier.Publish(ws.Notification{
		Type:        ws.EventAppointmentBooked,
		Sender:      studentID,
		Recipient:   req.PsychologistID,
		Appointment: &appointment,
	})

	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetAppointments handles fetching appointments scoped to the caller's
// role: students see their own, psychologists see their own calendar, and
// admins may filter by studentId/psychologistId query parameters.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Student").Preload("Psychologist").Order("start_time asc")

	var appointments []models.Appointment
	var err error
	switch userRole {
	case models.RoleStudent:
		q := query.Where("student_id = ?", userID)
		if pid := c.Query("psychologistId"); pid != "" {
			q = q.Where("psychologist_id = ?", pid)
		}
		err = q.Find(&appointments).Error
	case models.RolePsychologist:
		q := query.Where("psychologist_id = ?", userID)
		if sid := c.Query("studentId"); sid != "" {
			q = q.Where("student_id = ?", sid)
		}
		err = q.Find(&appointments).Error
	case models.RoleAdmin:
		if sid := c.Query("studentId"); sid != "" {
			query = query.Where("student_id = ?", sid)
		}
		if pid := c.Query("psychologistId"); pid != "" {
			query = query.Where("psychologist_id = ?", pid)
		}
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment. Accessible by
// the involved student, the involved psychologist, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Student").Preload("Psychologist").
		First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole != models.RoleAdmin && userID != appointment.StudentID && userID != appointment.PsychologistID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// ModifyAppointmentRequest represents the request body for moving an
// appointment to a new time. Version is the optimistic concurrency token
// the caller last saw; omitting it (zero) opts out of the stale-write
// check and writes against the current version.
type ModifyAppointmentRequest struct {
	Date    time.Time `json:"date" binding:"required"`
	Version uint      `json:"version"`
}

// ModifyAppointment handles rescheduling. A student-initiated move is
// revalidated against the psychologist's availability and resets the
// status to pending; a psychologist-initiated move skips the availability
// check and forces the status to confirmed.
func (h *AppointmentHandler) ModifyAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req ModifyAppointmentRequest
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

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isStudent := userRole == models.RoleStudent && userID == appointment.StudentID
	isPsychologist := userRole == models.RolePsychologist && userID == appointment.PsychologistID
	if !isStudent && !isPsychologist && userRole != models.RoleAdmin {
		utils.Forbidden(c, "You are not authorized to modify this appointment")
		return
	}

	if err := scheduling.CanModify(&appointment); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	newStatus := models.StatusConfirmed
	if isStudent {
		// Students are bound by the availability check; psychologists are not.
		var slots []models.AvailabilitySlot
		if err := h.DB.Where("psychologist_id = ?", appointment.PsychologistID).Find(&slots).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
			return
		}
		if err := scheduling.ValidateBooking(req.Date, time.Now(), slots); err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		newStatus = models.StatusPending
	}

	var siblings []models.Appointment
	if err := h.DB.Where("psychologist_id = ?", appointment.PsychologistID).Find(&siblings).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	if err := scheduling.CheckDoubleBooking(req.Date, siblings, appointment.ID); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	// Optimistic concurrency: students must present the version they saw.
	version := req.Version
	if version == 0 {
		version = appointment.Version
	}
	result := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND version = ?", appointment.ID, version).
		Updates(map[string]interface{}{
			"start_time": req.Date,
			"status":     newStatus,
			"version":    version + 1,
		})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to modify appointment: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.Conflict(c, "Appointment was modified by another request; reload and retry")
		return
	}

	if err := h.DB.First(&appointment, "id = ?", appointment.ID).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	// Notify every participant except the actor; an admin move reaches both.
	for _, recipient := range []string{appointment.StudentID, appointment.PsychologistID} {
		if recipient == userID {
			continue
		}
		h.Notifier.Publish(ws.Notification{
			Type:        ws.EventAppointmentModified,
			Sender:      userID,
			Recipient:   recipient,
			Appointment: &appointment,
		})
	}

	utils.Success(c, "Appointment modified successfully", appointment)
}

// ConfirmAppointment handles a psychologist confirming a pending
// appointment. Confirming an already-confirmed appointment is a no-op.
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin &&
		!(userRole == models.RolePsychologist && userID == appointment.PsychologistID) {
		utils.Forbidden(c, "Only the assigned psychologist can confirm this appointment")
		return
	}

	if appointment.Status == models.StatusConfirmed {
		utils.Success(c, "Appointment already confirmed", appointment)
		return
	}
	if err := scheduling.CanConfirm(&appointment); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	appointment.Status = models.StatusConfirmed
	appointment.Version++
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to confirm appointment: "+err.Error())
		return
	}

	h.Notifier.Publish(ws.Notification{
		Type:        ws.EventAppointmentConfirmed,
		Sender:      userID,
		Recipient:   appointment.StudentID,
		Appointment: &appointment,
	})

	utils.Success(c, "Appointment confirmed successfully", appointment)
}

// CancelAppointmentRequest represents the request body for cancelling an
// appointment. Version is the optimistic concurrency token the caller
// last saw; omitting it (zero) opts out of the stale-write check and
// writes against the current version.
type CancelAppointmentRequest struct {
	ReasonForCancellation string `json:"reasonForCancellation"`
	Version               uint   `json:"version"`
}

// CancelAppointment handles cancellation by either party. Cancelled is
// terminal; re-cancelling an already-cancelled appointment changes nothing
// and publishes nothing.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var req CancelAppointmentRequest
	// Body is optional on DELETE; a missing body means no reason given.
	_ = c.ShouldBindJSON(&req)

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	isStudent := userID == appointment.StudentID
	isPsychologist := userID == appointment.PsychologistID
	if !isStudent && !isPsychologist && userRole != models.RoleAdmin {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}

	if appointment.Status == models.StatusCancelled {
		// Idempotent: already processed.
		utils.Success(c, "Appointment already cancelled", appointment)
		return
	}

	version := req.Version
	if version == 0 {
		version = appointment.Version
	}
	result := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND version = ?", appointment.ID, version).
		Updates(map[string]interface{}{
			"status":              models.StatusCancelled,
			"cancellation_reason": req.ReasonForCancellation,
			"version":             version + 1,
		})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to cancel appointment: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.Conflict(c, "Appointment was modified by another request; reload and retry")
		return
	}

	if err := h.DB.First(&appointment, "id = ?", appointment.ID).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	// Notify every participant except the actor; an admin cancel reaches both.
	for _, recipient := range []string{appointment.StudentID, appointment.PsychologistID} {
		if recipient == userID {
			continue
		}
		h.Notifier.Publish(ws.Notification{
			Type:        ws.EventAppointmentCancelled,
			Sender:      userID,
			Recipient:   recipient,
			Appointment: &appointment,
		})
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}
