package models

import (
	"time"
)

// SlotStatus represents the status of an availability slot
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBlocked   SlotStatus = "blocked"
)

// AvailabilitySlot represents a psychologist-defined time window that is
// either bookable (available) or held back with a reason (blocked).
type AvailabilitySlot struct {
	BaseModel
	PsychologistID string     `gorm:"size:36;index" json:"psychologistId"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        time.Time  `json:"endTime"`
	Status         SlotStatus `gorm:"size:20;default:'available'" json:"status"`
	Reason         string     `gorm:"size:255" json:"reason,omitempty"`
	Version        uint       `gorm:"default:1" json:"version"`

	Psychologist User `gorm:"foreignKey:PsychologistID" json:"-"`
}
