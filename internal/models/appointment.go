package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled" // terminal
)

// AppointmentPriority marks how urgently a student needs the session.
type AppointmentPriority string

const (
	PriorityRegular   AppointmentPriority = "regular"
	PriorityEmergency AppointmentPriority = "emergency"
)

// AppointmentDuration is the fixed length of every session.
const AppointmentDuration = 60 * time.Minute

// Appointment represents a scheduled session between a student and a psychologist
type Appointment struct {
	BaseModel
	StudentID          string              `gorm:"size:36;index" json:"studentId"`
	PsychologistID     string              `gorm:"size:36;index" json:"psychologistId"`
	StartTime          time.Time           `json:"startTime"`
	Status             AppointmentStatus   `gorm:"size:20;default:'pending'" json:"status"`
	Priority           AppointmentPriority `gorm:"size:20;default:'regular'" json:"priority"`
	CancellationReason string              `gorm:"size:255" json:"cancellationReason,omitempty"`
	Version            uint                `gorm:"default:1" json:"version"`

	// Relations
	Student      User `gorm:"foreignKey:StudentID" json:"-"`
	Psychologist User `gorm:"foreignKey:PsychologistID" json:"-"`
}

// EndTime returns the end of the fixed-duration session window.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(AppointmentDuration)
}
