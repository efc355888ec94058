package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-care-server/internal/models"
	"campus-care-server/internal/ws"
)

// nextNineAM returns a 09:00-10:00 window comfortably in the future.
func nextNineAM() (time.Time, time.Time) {
	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Hour)
	start = time.Date(start.Year(), start.Month(), start.Day(), 9, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func (e *testEnv) addSlot(t *testing.T, psychologistID string, start, end time.Time, status models.SlotStatus, reason string) models.AvailabilitySlot {
	t.Helper()
	slot := models.AvailabilitySlot{
		PsychologistID: psychologistID,
		StartTime:      start,
		EndTime:        end,
		Status:         status,
		Reason:         reason,
	}
	require.NoError(t, e.DB.Create(&slot).Error)
	return slot
}

func TestBookAppointment(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")
	studentToken := env.tokenFor(t, &student)

	nine, ten := nextNineAM()
	env.addSlot(t, psych.ID, nine, ten, models.SlotAvailable, "")

	t.Run("ExactFitAccepted", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", studentToken, map[string]interface{}{
			"psychologistId": psych.ID,
			"date":           nine,
			"priority":       "regular",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var appt models.Appointment
		decodeData(t, rec, &appt)
		assert.Equal(t, models.StatusPending, appt.Status)
		assert.Equal(t, student.ID, appt.StudentID)

		// A case materializes on first booking.
		var count int64
		env.DB.Model(&models.Case{}).
			Where("student_id = ? AND psychologist_id = ?", student.ID, psych.ID).
			Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("EndExceedsSlotRejected", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", studentToken, map[string]interface{}{
			"psychologistId": psych.ID,
			"date":           nine.Add(15 * time.Minute),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("SameHourDoubleBookingRejected", func(t *testing.T) {
		other := env.createUser(t, models.RoleStudent, "other@uni.edu")
		rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", env.tokenFor(t, &other), map[string]interface{}{
			"psychologistId": psych.ID,
			"date":           nine,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("PastDateRejected", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", studentToken, map[string]interface{}{
			"psychologistId": psych.ID,
			"date":           time.Now().UTC().Add(-time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PsychologistCannotBook", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", env.tokenFor(t, &psych), map[string]interface{}{
			"psychologistId": psych.ID,
			"date":           nine,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestBookAgainstBlockedSlot(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")

	nine, ten := nextNineAM()
	env.addSlot(t, psych.ID, nine, ten, models.SlotBlocked, "Meeting")

	rec := env.request(t, http.MethodPost, "/api/v1/cases/book-appointment", env.tokenFor(t, &student), map[string]interface{}{
		"psychologistId": psych.ID,
		"date":           nine,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmAppointment(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")

	nine, _ := nextNineAM()
	appt := models.Appointment{
		StudentID:      student.ID,
		PsychologistID: psych.ID,
		StartTime:      nine,
		Status:         models.StatusPending,
		Priority:       models.PriorityRegular,
		Version:        1,
	}
	require.NoError(t, env.DB.Create(&appt).Error)

	// Listen in the student's room.
	studentSession := &ws.Client{UserID: student.ID, Send: make(chan []byte, 4)}
	env.Hub.Register(studentSession)
	bystander := &ws.Client{UserID: "someone-else", Send: make(chan []byte, 4)}
	env.Hub.Register(bystander)

	rec := env.request(t, http.MethodPut, "/api/v1/appointments/confirm/"+appt.ID, env.tokenFor(t, &psych), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Appointment
	require.NoError(t, env.DB.First(&updated, "id = ?", appt.ID).Error)
	assert.Equal(t, models.StatusConfirmed, updated.Status)

	// Notification lands in the student's room only.
	require.Len(t, studentSession.Send, 1)
	var note ws.Notification
	require.NoError(t, json.Unmarshal(<-studentSession.Send, &note))
	assert.Equal(t, ws.EventAppointmentConfirmed, note.Type)
	assert.Equal(t, student.ID, note.Recipient)
	assert.Empty(t, bystander.Send)

	t.Run("ConfirmAgainIsNoOp", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/confirm/"+appt.ID, env.tokenFor(t, &psych), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("StudentCannotConfirm", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/confirm/"+appt.ID, env.tokenFor(t, &student), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestModifyAppointment(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")

	nine, ten := nextNineAM()
	env.addSlot(t, psych.ID, nine, ten.Add(2*time.Hour), models.SlotAvailable, "")

	appt := models.Appointment{
		StudentID:      student.ID,
		PsychologistID: psych.ID,
		StartTime:      nine,
		Status:         models.StatusConfirmed,
		Priority:       models.PriorityRegular,
		Version:        1,
	}
	require.NoError(t, env.DB.Create(&appt).Error)

	t.Run("StudentMoveResetsToPending", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &student), map[string]interface{}{
			"date":    ten,
			"version": 1,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.Appointment
		require.NoError(t, env.DB.First(&updated, "id = ?", appt.ID).Error)
		assert.Equal(t, models.StatusPending, updated.Status)
		assert.True(t, updated.StartTime.Equal(ten))
		assert.EqualValues(t, 2, updated.Version)
	})

	t.Run("StaleVersionConflicts", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &student), map[string]interface{}{
			"date":    nine,
			"version": 1, // already bumped to 2
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("StudentMoveOutsideAvailabilityRejected", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &student), map[string]interface{}{
			"date":    ten.Add(5 * time.Hour),
			"version": 2,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PsychologistMoveForcesConfirmedWithoutAvailabilityCheck", func(t *testing.T) {
		outside := ten.Add(6 * time.Hour)
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &psych), map[string]interface{}{
			"date": outside,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.Appointment
		require.NoError(t, env.DB.First(&updated, "id = ?", appt.ID).Error)
		assert.Equal(t, models.StatusConfirmed, updated.Status)
		assert.True(t, updated.StartTime.Equal(outside))
	})

	t.Run("OutsiderForbidden", func(t *testing.T) {
		outsider := env.createUser(t, models.RoleStudent, "outsider@uni.edu")
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &outsider), map[string]interface{}{
			"date": ten,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCancelAppointment(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")

	nine, _ := nextNineAM()
	appt := models.Appointment{
		StudentID:      student.ID,
		PsychologistID: psych.ID,
		StartTime:      nine,
		Status:         models.StatusConfirmed,
		Version:        1,
	}
	require.NoError(t, env.DB.Create(&appt).Error)

	psychSession := &ws.Client{UserID: psych.ID, Send: make(chan []byte, 4)}
	env.Hub.Register(psychSession)

	rec := env.request(t, http.MethodDelete, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &student), map[string]interface{}{
		"reasonForCancellation": "Exam week",
		"version":               1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Appointment
	require.NoError(t, env.DB.First(&updated, "id = ?", appt.ID).Error)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, "Exam week", updated.CancellationReason)
	assert.Len(t, psychSession.Send, 1)

	t.Run("CancelAgainIsIdempotent", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &student), map[string]interface{}{
			"reasonForCancellation": "changed my mind twice",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var again models.Appointment
		require.NoError(t, env.DB.First(&again, "id = ?", appt.ID).Error)
		assert.Equal(t, "Exam week", again.CancellationReason)
		assert.Equal(t, updated.Version, again.Version)
		// No second notification.
		assert.Len(t, psychSession.Send, 1)
	})

	t.Run("CancelledIsTerminalForModify", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &psych), map[string]interface{}{
			"date": nine.Add(time.Hour),
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("CancelledIsTerminalForConfirm", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/appointments/confirm/"+appt.ID, env.tokenFor(t, &psych), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAdminCancelNotifiesBothParticipants(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")
	admin := env.createUser(t, models.RoleAdmin, "admin@uni.edu")

	nine, _ := nextNineAM()
	appt := env.addAppointment(t, student.ID, psych.ID, nine, models.StatusConfirmed, models.PriorityRegular)

	studentSession := &ws.Client{UserID: student.ID, Send: make(chan []byte, 4)}
	psychSession := &ws.Client{UserID: psych.ID, Send: make(chan []byte, 4)}
	env.Hub.Register(studentSession)
	env.Hub.Register(psychSession)

	rec := env.request(t, http.MethodDelete, "/api/v1/appointments/"+appt.ID, env.tokenFor(t, &admin), map[string]interface{}{
		"reasonForCancellation": "Psychologist on leave",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Neither participant initiated the cancel, so both hear about it.
	require.Len(t, studentSession.Send, 1)
	require.Len(t, psychSession.Send, 1)

	var note ws.Notification
	require.NoError(t, json.Unmarshal(<-studentSession.Send, &note))
	assert.Equal(t, ws.EventAppointmentCancelled, note.Type)
	assert.Equal(t, admin.ID, note.Sender)
}

func TestGetAppointmentsScopedByRole(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	otherStudent := env.createUser(t, models.RoleStudent, "other@uni.edu")
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")

	nine, _ := nextNineAM()
	for i, sid := range []string{student.ID, otherStudent.ID} {
		appt := models.Appointment{
			StudentID:      sid,
			PsychologistID: psych.ID,
			StartTime:      nine.Add(time.Duration(i) * time.Hour),
			Status:         models.StatusPending,
		}
		require.NoError(t, env.DB.Create(&appt).Error)
	}

	var got []models.Appointment

	rec := env.request(t, http.MethodGet, "/api/v1/appointments", env.tokenFor(t, &student), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, student.ID, got[0].StudentID)

	rec = env.request(t, http.MethodGet, "/api/v1/appointments", env.tokenFor(t, &psych), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &got)
	assert.Len(t, got, 2)

	rec = env.request(t, http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
