package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/utils"
)

// SessionNoteHandler handles psychologist session notes.
type SessionNoteHandler struct {
	DB *gorm.DB
}

// NewSessionNoteHandler creates a new SessionNoteHandler.
func NewSessionNoteHandler(db *gorm.DB) *SessionNoteHandler {
	return &SessionNoteHandler{DB: db}
}

// CreateSessionNoteRequest represents the request body for creating a session note.
type CreateSessionNoteRequest struct {
	StudentID     string    `json:"studentId" binding:"required,uuid"`
	AppointmentID string    `json:"appointmentId" binding:"omitempty,uuid"`
	NoteType      string    `json:"noteType" binding:"required"`
	SessionDate   time.Time `json:"sessionDate" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	Summary       string    `json:"summary"`
	Content       string    `json:"content"`
}

// CreateSessionNote handles a psychologist writing a note about a session.
func (h *SessionNoteHandler) CreateSessionNote(c *gin.Context) {
	var req CreateSessionNoteRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	psychologistID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	// Verify student exists
	var student models.User
	if err := h.DB.Where("id = ? AND role = ?", req.StudentID, models.RoleStudent).
		First(&student).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Student not found")
		} else {
			utils.InternalServerError(c, "Database error verifying student: "+err.Error())
		}
		return
	}

	if req.AppointmentID != "" {
		var appointment models.Appointment
		if err := h.DB.First(&appointment, "id = ?", req.AppointmentID).Error; err != nil {
			utils.NotFound(c, "Appointment not found")
			return
		}
		if appointment.PsychologistID != psychologistID || appointment.StudentID != req.StudentID {
			utils.Forbidden(c, "Appointment does not belong to this psychologist and student")
			return
		}
	}

	note := models.SessionNote{
		StudentID:      req.StudentID,
		PsychologistID: psychologistID,
		AppointmentID:  req.AppointmentID,
		NoteType:       models.SessionNoteType(req.NoteType),
		SessionDate:    req.SessionDate,
		Title:          req.Title,
		Summary:        req.Summary,
		Content:        req.Content,
	}

	if err := h.DB.Create(&note).Error; err != nil {
		utils.InternalServerError(c, "Failed to create session note: "+err.Error())
		return
	}

	utils.Created(c, "Session note created successfully", note)
}

// GetSessionNotesForStudent handles fetching notes about one student.
// The student sees their own notes; a psychologist sees the notes they
// authored about that student.
func (h *SessionNoteHandler) GetSessionNotesForStudent(c *gin.Context) {
	studentID := c.Param("studentId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Order("session_date desc").Where("student_id = ?", studentID)
	switch userRole {
	case models.RoleStudent:
		if userID != studentID {
			utils.Forbidden(c, "Students can only view their own session notes")
			return
		}
	case models.RolePsychologist:
		query = query.Where("psychologist_id = ?", userID)
	case models.RoleAdmin:
		// Admins see everything.
	default:
		utils.Forbidden(c, "User role not permitted to view session notes")
		return
	}

	var notes []models.SessionNote
	if err := query.Find(&notes).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch session notes: "+err.Error())
		return
	}

	utils.Success(c, "Session notes fetched successfully", notes)
}

// GetSessionNoteByID handles fetching a single note.
func (h *SessionNoteHandler) GetSessionNoteByID(c *gin.Context) {
	noteID := c.Param("id")

	var note models.SessionNote
	if err := h.DB.First(&note, "id = ?", noteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Session note not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != note.StudentID && userID != note.PsychologistID {
		utils.Forbidden(c, "You are not authorized to view this session note")
		return
	}

	utils.Success(c, "Session note fetched successfully", note)
}

// UpdateSessionNoteRequest represents the request body for updating a session note.
type UpdateSessionNoteRequest struct {
	NoteType string `json:"noteType"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
}

// UpdateSessionNote handles updating a note. Only the authoring
// psychologist (or an admin) may edit.
func (h *SessionNoteHandler) UpdateSessionNote(c *gin.Context) {
	noteID := c.Param("id")

	var req UpdateSessionNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	var note models.SessionNote
	if err := h.DB.First(&note, "id = ?", noteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Session note not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != note.PsychologistID {
		utils.Forbidden(c, "Only the authoring psychologist can edit this note")
		return
	}

	if req.NoteType != "" {
		note.NoteType = models.SessionNoteType(req.NoteType)
	}
	if req.Title != "" {
		note.Title = req.Title
	}
	if req.Summary != "" {
		note.Summary = req.Summary
	}
	if req.Content != "" {
		note.Content = req.Content
	}

	if err := h.DB.Save(&note).Error; err != nil {
		utils.InternalServerError(c, "Failed to update session note: "+err.Error())
		return
	}

	utils.Success(c, "Session note updated successfully", note)
}

// DeleteSessionNote handles deleting a note. Author or admin only.
func (h *SessionNoteHandler) DeleteSessionNote(c *gin.Context) {
	noteID := c.Param("id")

	var note models.SessionNote
	if err := h.DB.First(&note, "id = ?", noteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Session note not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != note.PsychologistID {
		utils.Forbidden(c, "Only the authoring psychologist can delete this note")
		return
	}

	if err := h.DB.Delete(&models.SessionNote{}, "id = ?", noteID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete session note: "+err.Error())
		return
	}

	utils.Success(c, "Session note deleted successfully", nil)
}
