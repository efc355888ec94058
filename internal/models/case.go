package models

// CaseStatus is the stored lifecycle of a case row. The richer status shown
// to psychologists (pending / in_progress) is derived from the case's
// appointments at read time and never persisted.
type CaseStatus string

const (
	CaseActive   CaseStatus = "active"
	CaseArchived CaseStatus = "archived"
)

// DerivedCaseStatus is the read-time status computed from appointments.
type DerivedCaseStatus string

const (
	CasePending    DerivedCaseStatus = "pending"
	CaseInProgress DerivedCaseStatus = "in_progress"
	CaseResolved   DerivedCaseStatus = "resolved"
)

// Case aggregates all appointments between one student and one psychologist.
// A row materializes when the first appointment between the pair is booked
// and is archived only by an explicit resolve action.
type Case struct {
	BaseModel
	StudentID      string     `gorm:"size:36;index:idx_case_pair" json:"studentId"`
	PsychologistID string     `gorm:"size:36;index:idx_case_pair" json:"psychologistId"`
	Status         CaseStatus `gorm:"size:20;default:'active'" json:"status"`

	Student      User `gorm:"foreignKey:StudentID" json:"-"`
	Psychologist User `gorm:"foreignKey:PsychologistID" json:"-"`
}

// CaseView is the API projection of a case with its derived aggregates.
type CaseView struct {
	ID                    string              `json:"id"`
	StudentID             string              `json:"studentId"`
	PsychologistID        string              `json:"psychologistId"`
	Status                CaseStatus          `json:"status"`
	DerivedStatus         DerivedCaseStatus   `json:"derivedStatus"`
	Priority              AppointmentPriority `json:"priority"`
	Student               UserSanitized       `json:"student"`
	PendingAppointments   []Appointment       `json:"pendingAppointments"`
	ConfirmedAppointments []Appointment       `json:"confirmedAppointments"`
}

// DeriveCaseState computes the derived status and priority of a case from
// the appointments between its student and psychologist. A case is pending
// while at least one appointment is pending, in progress once all remaining
// appointments are confirmed and at least one exists, and resolved when
// nothing is left open. Priority follows the most recently booked
// appointment.
func DeriveCaseState(appointments []Appointment) (DerivedCaseStatus, AppointmentPriority) {
	priority := PriorityRegular
	var pending, confirmed int
	for i := range appointments {
		a := &appointments[i]
		switch a.Status {
		case StatusPending:
			pending++
		case StatusConfirmed:
			confirmed++
		}
	}
	if len(appointments) > 0 {
		// Appointments are expected ordered by creation time ascending;
		// the last one carries the case priority.
		priority = appointments[len(appointments)-1].Priority
		if priority == "" {
			priority = PriorityRegular
		}
	}

	switch {
	case pending > 0:
		return CasePending, priority
	case confirmed > 0:
		return CaseInProgress, priority
	default:
		return CaseResolved, priority
	}
}

// BuildCaseView assembles the API projection for a case from its
// appointment history.
func BuildCaseView(cs *Case, appointments []Appointment) CaseView {
	derived, priority := DeriveCaseState(appointments)

	pending := make([]Appointment, 0)
	confirmed := make([]Appointment, 0)
	for _, a := range appointments {
		switch a.Status {
		case StatusPending:
			pending = append(pending, a)
		case StatusConfirmed:
			confirmed = append(confirmed, a)
		}
	}

	return CaseView{
		ID:                    cs.ID,
		StudentID:             cs.StudentID,
		PsychologistID:        cs.PsychologistID,
		Status:                cs.Status,
		DerivedStatus:         derived,
		Priority:              priority,
		Student:               cs.Student.Sanitize(),
		PendingAppointments:   pending,
		ConfirmedAppointments: confirmed,
	}
}
