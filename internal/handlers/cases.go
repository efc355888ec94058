package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/utils"
)

// CaseHandler handles case aggregation for psychologists. Case status and
// priority are derived from the appointment history on every read so all
// clients observe the same value.
type CaseHandler struct {
	DB *gorm.DB
}

// NewCaseHandler creates a new CaseHandler.
func NewCaseHandler(db *gorm.DB) *CaseHandler {
	return &CaseHandler{DB: db}
}

func (h *CaseHandler) listCases(c *gin.Context, status models.CaseStatus) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	psychologistID := userID
	if userRole == models.RoleAdmin {
		if pid := c.Query("psychologistId"); pid != "" {
			psychologistID = pid
		}
	}

	var cases []models.Case
	if err := h.DB.Preload("Student").
		Where("psychologist_id = ? AND status = ?", psychologistID, status).
		Order("created_at asc").Find(&cases).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch cases: "+err.Error())
		return
	}

	views := make([]models.CaseView, 0, len(cases))
	for i := range cases {
		cs := &cases[i]
		var appointments []models.Appointment
		if err := h.DB.Where("student_id = ? AND psychologist_id = ?", cs.StudentID, cs.PsychologistID).
			Order("created_at asc").Find(&appointments).Error; err != nil {
			utils.InternalServerError(c, "Failed to fetch case appointments: "+err.Error())
			return
		}
		views = append(views, models.BuildCaseView(cs, appointments))
	}

	utils.Success(c, "Cases fetched successfully", views)
}

// GetCases handles fetching the active cases of the authenticated
// psychologist (admins may select one via psychologistId).
func (h *CaseHandler) GetCases(c *gin.Context) {
	h.listCases(c, models.CaseActive)
}

// GetArchivedCases handles fetching resolved cases.
func (h *CaseHandler) GetArchivedCases(c *gin.Context) {
	h.listCases(c, models.CaseArchived)
}

// ResolveCase handles archiving a case. Archiving is the only way a case
// leaves the active list; it never happens implicitly.
func (h *CaseHandler) ResolveCase(c *gin.Context) {
	caseID := c.Param("id")

	var cs models.Case
	if err := h.DB.First(&cs, "id = ?", caseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Case not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != cs.PsychologistID {
		utils.Forbidden(c, "You can only resolve your own cases")
		return
	}

	if cs.Status == models.CaseArchived {
		utils.Success(c, "Case already archived", cs)
		return
	}

	cs.Status = models.CaseArchived
	if err := h.DB.Save(&cs).Error; err != nil {
		utils.InternalServerError(c, "Failed to resolve case: "+err.Error())
		return
	}

	utils.Success(c, "Case resolved successfully", cs)
}
