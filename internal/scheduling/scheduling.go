// Package scheduling holds the pure booking rules: interval containment
// against availability slots, overlap detection between slots and between
// appointments, and the legal status transitions for an appointment.
// Everything here is side-effect free; handlers load the relevant rows and
// ask this package whether a mutation is allowed.
package scheduling

import (
	"errors"
	"time"

	"campus-care-server/internal/models"
)

// Domain errors surfaced by the booking rules.
var (
	ErrPastStart        = errors.New("requested time is in the past")
	ErrInvalidInterval  = errors.New("interval start must be before its end")
	ErrNotCovered       = errors.New("no available slot covers the requested time")
	ErrSlotOverlap      = errors.New("slot overlaps an existing slot for this psychologist")
	ErrDoubleBooked     = errors.New("another appointment already occupies this time")
	ErrCancelledFinal   = errors.New("appointment is cancelled and cannot change state")
	ErrNotPending       = errors.New("only a pending appointment can be confirmed")
	ErrBlockNeedsReason = errors.New("a reason is required to block a slot")
)

// SlotCovers reports whether the candidate interval [start, end) lies
// entirely inside some slot with status available. Blocked slots are not
// matched; they neither permit nor forbid. Containment must be total.
func SlotCovers(start, end time.Time, slots []models.AvailabilitySlot) bool {
	for i := range slots {
		s := &slots[i]
		if s.Status != models.SlotAvailable {
			continue
		}
		if !s.StartTime.After(start) && !s.EndTime.Before(end) {
			return true
		}
	}
	return false
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidateBooking checks the rules a student-initiated booking or
// modification must satisfy: the session must start in the future and must
// be fully contained in an available slot of the psychologist.
func ValidateBooking(start time.Time, now time.Time, slots []models.AvailabilitySlot) error {
	if start.Before(now) {
		return ErrPastStart
	}
	if !SlotCovers(start, start.Add(models.AppointmentDuration), slots) {
		return ErrNotCovered
	}
	return nil
}

// ValidateSlotInterval checks the basic shape of an availability slot.
func ValidateSlotInterval(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	return nil
}

// CheckSiblingOverlap rejects a slot interval that intersects any other
// slot belonging to the same psychologist. excludeID skips the slot being
// updated so it does not conflict with itself.
func CheckSiblingOverlap(start, end time.Time, siblings []models.AvailabilitySlot, excludeID string) error {
	for i := range siblings {
		s := &siblings[i]
		if s.ID == excludeID {
			continue
		}
		if Overlaps(start, end, s.StartTime, s.EndTime) {
			return ErrSlotOverlap
		}
	}
	return nil
}

// CheckDoubleBooking rejects a session window that intersects any other
// non-cancelled appointment of the psychologist. excludeID skips the
// appointment being moved.
func CheckDoubleBooking(start time.Time, appointments []models.Appointment, excludeID string) error {
	end := start.Add(models.AppointmentDuration)
	for i := range appointments {
		a := &appointments[i]
		if a.ID == excludeID || a.Status == models.StatusCancelled {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime()) {
			return ErrDoubleBooked
		}
	}
	return nil
}

// CanModify reports whether an appointment may still be rescheduled.
// Cancelled is terminal.
func CanModify(a *models.Appointment) error {
	if a.Status == models.StatusCancelled {
		return ErrCancelledFinal
	}
	return nil
}

// CanConfirm reports whether a psychologist may confirm the appointment.
func CanConfirm(a *models.Appointment) error {
	if a.Status == models.StatusCancelled {
		return ErrCancelledFinal
	}
	if a.Status != models.StatusPending {
		return ErrNotPending
	}
	return nil
}

// ValidateBlock checks the data required to put a slot into the blocked
// state. Unblocking never needs a reason; the handler clears it.
func ValidateBlock(status models.SlotStatus, reason string) error {
	if status == models.SlotBlocked && reason == "" {
		return ErrBlockNeedsReason
	}
	return nil
}
