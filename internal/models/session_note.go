package models

import (
	"time"
)

// SessionNoteType represents the type of session note
type SessionNoteType string

const (
	NoteTypeIntake     SessionNoteType = "IntakeNote"
	NoteTypeSession    SessionNoteType = "SessionNote"
	NoteTypeFollowUp   SessionNoteType = "FollowUpNote"
	NoteTypeRiskReview SessionNoteType = "RiskReview"
	NoteTypeClosure    SessionNoteType = "ClosureSummary"
)

// SessionNote represents a psychologist's note about a session with a student
type SessionNote struct {
	BaseModel
	StudentID      string          `gorm:"size:36;index" json:"studentId"`
	PsychologistID string          `gorm:"size:36;index" json:"psychologistId"`
	AppointmentID  string          `gorm:"size:36;index" json:"appointmentId,omitempty"`
	NoteType       SessionNoteType `gorm:"size:50" json:"noteType"`
	SessionDate    time.Time       `json:"sessionDate"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Summary        string          `gorm:"type:text" json:"summary"`
	Content        string          `gorm:"type:text" json:"content"`

	// Relations
	Student      User `gorm:"foreignKey:StudentID" json:"-"`
	Psychologist User `gorm:"foreignKey:PsychologistID" json:"-"`
}
