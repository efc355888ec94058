package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campus-care-server/internal/middleware"
	"campus-care-server/internal/models"
	"campus-care-server/internal/scheduling"
	"campus-care-server/internal/utils"
)

// AvailabilityHandler handles availability slot management for psychologists.
type AvailabilityHandler struct {
	DB *gorm.DB
}

// NewAvailabilityHandler creates a new AvailabilityHandler.
func NewAvailabilityHandler(db *gorm.DB) *AvailabilityHandler {
	return &AvailabilityHandler{DB: db}
}

// GetAvailability handles fetching the slots of one psychologist. This is a
// public read: students browse availability before logging a booking.
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	psychologistID := c.Query("psychologistId")
	if psychologistID == "" {
		utils.BadRequest(c, "psychologistId query parameter is required")
		return
	}

	var slots []models.AvailabilitySlot
	if err := h.DB.Where("psychologist_id = ?", psychologistID).
		Order("start_time asc").Find(&slots).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	utils.Success(c, "Availability fetched successfully", slots)
}

// CreateSlotRequest represents the request body for adding an availability slot.
type CreateSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Status    string    `json:"status" binding:"omitempty,oneof=available blocked"`
	Reason    string    `json:"reason"`
}

// CreateSlot handles adding a new availability slot for the authenticated
// psychologist.
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	psychologistID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := scheduling.ValidateSlotInterval(req.StartTime, req.EndTime); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	status := models.SlotStatus(req.Status)
	if status == "" {
		status = models.SlotAvailable
	}
	if err := scheduling.ValidateBlock(status, req.Reason); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var siblings []models.AvailabilitySlot
	if err := h.DB.Where("psychologist_id = ?", psychologistID).Find(&siblings).Error; err != nil {
		utils.InternalServerError(c, "Failed to check existing slots: "+err.Error())
		return
	}
	if err := scheduling.CheckSiblingOverlap(req.StartTime, req.EndTime, siblings, ""); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	slot := models.AvailabilitySlot{
		PsychologistID: psychologistID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         status,
		Reason:         req.Reason,
	}
	if status == models.SlotAvailable {
		slot.Reason = ""
	}

	if err := h.DB.Create(&slot).Error; err != nil {
		utils.InternalServerError(c, "Failed to create slot: "+err.Error())
		return
	}

	utils.Created(c, "Availability slot created successfully", slot)
}

// UpdateSlotRequest represents the request body for modifying a slot,
// including block and unblock transitions.
type UpdateSlotRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
	Status    string    `json:"status" binding:"required,oneof=available blocked"`
	Reason    string    `json:"reason"`
	Version   uint      `json:"version" binding:"required"`
}

// UpdateSlot handles modifying an availability slot: time changes, blocking
// with a reason, and unblocking (which clears the reason).
func (h *AvailabilityHandler) UpdateSlot(c *gin.Context) {
	slotID := c.Param("id")

	var req UpdateSlotRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var slot models.AvailabilitySlot
	if err := h.DB.First(&slot, "id = ?", slotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Availability slot not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != slot.PsychologistID {
		utils.Forbidden(c, "You can only modify your own availability")
		return
	}

	if err := scheduling.ValidateSlotInterval(req.StartTime, req.EndTime); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	status := models.SlotStatus(req.Status)
	if err := scheduling.ValidateBlock(status, req.Reason); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	var siblings []models.AvailabilitySlot
	if err := h.DB.Where("psychologist_id = ?", slot.PsychologistID).Find(&siblings).Error; err != nil {
		utils.InternalServerError(c, "Failed to check existing slots: "+err.Error())
		return
	}
	if err := scheduling.CheckSiblingOverlap(req.StartTime, req.EndTime, siblings, slot.ID); err != nil {
		utils.Conflict(c, err.Error())
		return
	}

	reason := req.Reason
	if status == models.SlotAvailable {
		reason = "" // unblock clears the reason
	}

	// Optimistic concurrency: the write only lands if the caller saw the
	// current version.
	result := h.DB.Model(&models.AvailabilitySlot{}).
		Where("id = ? AND version = ?", slot.ID, req.Version).
		Updates(map[string]interface{}{
			"start_time": req.StartTime,
			"end_time":   req.EndTime,
			"status":     status,
			"reason":     reason,
			"version":    req.Version + 1,
		})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update slot: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.Conflict(c, "Slot was modified by another request; reload and retry")
		return
	}

	if err := h.DB.First(&slot, "id = ?", slot.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Availability slot not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Availability slot updated successfully", slot)
}

// DeleteSlot handles removing an availability slot.
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	slotID := c.Param("id")

	var slot models.AvailabilitySlot
	if err := h.DB.First(&slot, "id = ?", slotID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Availability slot not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != slot.PsychologistID {
		utils.Forbidden(c, "You can only delete your own availability")
		return
	}

	if err := h.DB.Delete(&models.AvailabilitySlot{}, "id = ?", slotID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete slot: "+err.Error())
		return
	}

	utils.Success(c, "Availability slot deleted successfully", nil)
}
