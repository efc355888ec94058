package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/utils"
)

// CalendarEvent is the renderable projection of an appointment or an
// availability slot. Availability entries are background-only: they shade
// calendar cells and gate slot selection, they are never clickable events.
type CalendarEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "appointment" or "availability"
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	Color      string    `json:"color"`
	Emergency  bool      `json:"emergency,omitempty"`
	Background bool      `json:"background,omitempty"`
}

var appointmentColors = map[models.AppointmentStatus]string{
	models.StatusPending:   "#f59e0b",
	models.StatusConfirmed: "#22c55e",
	models.StatusCancelled: "#ef4444",
}

var slotColors = map[models.SlotStatus]string{
	models.SlotAvailable: "#dcfce7",
	models.SlotBlocked:   "#fee2e2",
}

func appointmentEvent(a *models.Appointment) CalendarEvent {
	return CalendarEvent{
		ID:        a.ID,
		Kind:      "appointment",
		Title:     "Session",
		Start:     a.StartTime,
		End:       a.EndTime(),
		Status:    string(a.Status),
		Color:     appointmentColors[a.Status],
		Emergency: a.Priority == models.PriorityEmergency,
	}
}

func slotEvent(s *models.AvailabilitySlot) CalendarEvent {
	return CalendarEvent{
		ID:         s.ID,
		Kind:       "availability",
		Title:      string(s.Status),
		Start:      s.StartTime,
		End:        s.EndTime,
		Status:     string(s.Status),
		Color:      slotColors[s.Status],
		Background: true,
	}
}

// GetCalendar produces the merged event list for the caller. Students see
// their own appointments plus the availability of the psychologist named
// by the psychologistId query parameter; psychologists see their own
// appointments and slots.
func (h *AppointmentHandler) GetCalendar(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	var slots []models.AvailabilitySlot

	switch userRole {
	case models.RoleStudent:
		if err := h.DB.Where("student_id = ?", userID).
			Order("start_time asc").Find(&appointments).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
			return
		}
		if pid := c.Query("psychologistId"); pid != "" {
			if err := h.DB.Where("psychologist_id = ?", pid).
				Order("start_time asc").Find(&slots).Error; err != nil {
				utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
				return
			}
		}
	case models.RolePsychologist:
		if err := h.DB.Where("psychologist_id = ?", userID).
			Order("start_time asc").Find(&appointments).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
			return
		}
		if err := h.DB.Where("psychologist_id = ?", userID).
			Order("start_time asc").Find(&slots).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
			return
		}
	default:
		utils.Forbidden(c, "User role not permitted to view a calendar")
		return
	}

	events := make([]CalendarEvent, 0, len(appointments)+len(slots))
	for i := range slots {
		events = append(events, slotEvent(&slots[i]))
	}
	for i := range appointments {
		events = append(events, appointmentEvent(&appointments[i]))
	}

	utils.Success(c, "Calendar fetched successfully", events)
}
