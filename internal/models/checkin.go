package models

// Mood represents the self-reported mood of a wellbeing check-in
type Mood string

const (
	MoodGreat      Mood = "great"
	MoodGood       Mood = "good"
	MoodOkay       Mood = "okay"
	MoodLow        Mood = "low"
	MoodStruggling Mood = "struggling"
)

// WellbeingCheckin represents a single wellbeing questionnaire entry
// submitted by a student.
type WellbeingCheckin struct {
	BaseModel
	StudentID string `gorm:"size:36;index" json:"studentId"`
	Score     int    `gorm:"not null" json:"score"` // 1 (worst) to 10 (best)
	Mood      Mood   `gorm:"size:20" json:"mood"`
	Note      string `gorm:"type:text" json:"note,omitempty"`

	Student User `gorm:"foreignKey:StudentID" json:"-"`
}

// CheckinSummary aggregates a student's check-in history over a window.
type CheckinSummary struct {
	Count        int64          `json:"count"`
	AverageScore float64        `json:"averageScore"`
	MoodCounts   map[Mood]int64 `json:"moodCounts"`
}
