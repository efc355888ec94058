package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/utils"
)

// CheckinHandler handles wellbeing questionnaire entries and their
// history/analytics.
type CheckinHandler struct {
	DB *gorm.DB
}

// NewCheckinHandler creates a new CheckinHandler.
func NewCheckinHandler(db *gorm.DB) *CheckinHandler {
	return &CheckinHandler{DB: db}
}

// CreateCheckinRequest represents the request body for submitting a check-in.
type CreateCheckinRequest struct {
	Score int    `json:"score" binding:"required,min=1,max=10"`
	Mood  string `json:"mood" binding:"required,oneof=great good okay low struggling"`
	Note  string `json:"note"`
}

// CreateCheckin handles a student submitting a wellbeing check-in.
func (h *CheckinHandler) CreateCheckin(c *gin.Context) {
	var req CreateCheckinRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	studentID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	checkin := models.WellbeingCheckin{
		StudentID: studentID,
		Score:     req.Score,
		Mood:      models.Mood(req.Mood),
		Note:      req.Note,
	}

	if err := h.DB.Create(&checkin).Error; err != nil {
		utils.InternalServerError(c, "Failed to record check-in: "+err.Error())
		return
	}

	utils.Created(c, "Check-in recorded successfully", checkin)
}

// resolveCheckinStudent decides whose history the caller may read:
// students read their own, psychologists read a student's if they share a
// case, admins read anyone's via the studentId query parameter.
func (h *CheckinHandler) resolveCheckinStudent(c *gin.Context) (string, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return "", false
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	switch userRole {
	case models.RoleStudent:
		return userID, true
	case models.RoleAdmin:
		studentID := c.Query("studentId")
		if studentID == "" {
			utils.BadRequest(c, "studentId query parameter is required")
			return "", false
		}
		return studentID, true
	case models.RolePsychologist:
		studentID := c.Query("studentId")
		if studentID == "" {
			utils.BadRequest(c, "studentId query parameter is required")
			return "", false
		}
		var cs models.Case
		if err := h.DB.Where("student_id = ? AND psychologist_id = ?", studentID, userID).
			First(&cs).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.Forbidden(c, "No case exists with this student")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return "", false
		}
		return studentID, true
	default:
		utils.Forbidden(c, "User role not permitted to view check-ins")
		return "", false
	}
}

// GetCheckinHistory handles fetching the check-in history of a student.
func (h *CheckinHandler) GetCheckinHistory(c *gin.Context) {
	studentID, ok := h.resolveCheckinStudent(c)
	if !ok {
		return
	}

	var checkins []models.WellbeingCheckin
	if err := h.DB.Where("student_id = ?", studentID).
		Order("created_at desc").Find(&checkins).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch check-ins: "+err.Error())
		return
	}

	utils.Success(c, "Check-in history fetched successfully", checkins)
}

// GetCheckinSummary handles aggregating a student's check-ins over the
// last N days (default 30): average score and per-mood counts.
func (h *CheckinHandler) GetCheckinSummary(c *gin.Context) {
	studentID, ok := h.resolveCheckinStudent(c)
	if !ok {
		return
	}

	days := 30
	if d := c.Query("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			utils.BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}
	since := time.Now().AddDate(0, 0, -days)

	summary := models.CheckinSummary{MoodCounts: make(map[models.Mood]int64)}

	base := h.DB.Model(&models.WellbeingCheckin{}).
		Where("student_id = ? AND created_at >= ?", studentID, since)

	if err := base.Session(&gorm.Session{}).Count(&summary.Count).Error; err != nil {
		utils.InternalServerError(c, "Failed to aggregate check-ins: "+err.Error())
		return
	}

	if summary.Count > 0 {
		var avg float64
		if err := base.Session(&gorm.Session{}).
			Select("AVG(score)").Scan(&avg).Error; err != nil {
			utils.InternalServerError(c, "Failed to aggregate check-ins: "+err.Error())
			return
		}
		summary.AverageScore = avg

		var rows []struct {
			Mood  models.Mood
			Count int64
		}
		if err := base.Session(&gorm.Session{}).
			Select("mood, COUNT(*) as count").Group("mood").Scan(&rows).Error; err != nil {
			utils.InternalServerError(c, "Failed to aggregate check-ins: "+err.Error())
			return
		}
		for _, row := range rows {
			summary.MoodCounts[row.Mood] = row.Count
		}
	}

	utils.Success(c, "Check-in summary fetched successfully", summary)
}
