package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-care-server/internal/models"
)

func (e *testEnv) addSessionNote(t *testing.T, studentID, psychologistID, title string) models.SessionNote {
	t.Helper()
	note := models.SessionNote{
		StudentID:      studentID,
		PsychologistID: psychologistID,
		NoteType:       models.NoteTypeSession,
		SessionDate:    time.Now().UTC(),
		Title:          title,
		Content:        "session content",
	}
	require.NoError(t, e.DB.Create(&note).Error)
	return note
}

func TestCreateSessionNote(t *testing.T) {
	env := setupTestEnv(t)
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")
	otherPsych := env.createUser(t, models.RolePsychologist, "other@uni.edu")
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")

	nine, _ := nextNineAM()
	appt := env.addAppointment(t, student.ID, psych.ID, nine, models.StatusConfirmed, models.PriorityRegular)

	body := map[string]interface{}{
		"studentId":     student.ID,
		"appointmentId": appt.ID,
		"noteType":      "SessionNote",
		"sessionDate":   nine,
		"title":         "First session",
		"summary":       "Initial assessment",
		"content":       "Discussed exam stress.",
	}

	rec := env.request(t, http.MethodPost, "/api/v1/session-notes", env.tokenFor(t, &psych), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var note models.SessionNote
	decodeData(t, rec, &note)
	assert.Equal(t, psych.ID, note.PsychologistID)
	assert.Equal(t, student.ID, note.StudentID)
	assert.Equal(t, models.NoteTypeSession, note.NoteType)

	t.Run("ForeignAppointmentRejected", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/session-notes", env.tokenFor(t, &otherPsych), body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("UnknownStudentNotFound", func(t *testing.T) {
		bad := map[string]interface{}{
			"studentId":   "00000000-0000-0000-0000-000000000000",
			"noteType":    "IntakeNote",
			"sessionDate": nine,
			"title":       "Orphan note",
		}
		rec := env.request(t, http.MethodPost, "/api/v1/session-notes", env.tokenFor(t, &psych), bad)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("StudentCannotAuthor", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/session-notes", env.tokenFor(t, &student), body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSessionNoteVisibility(t *testing.T) {
	env := setupTestEnv(t)
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")
	otherPsych := env.createUser(t, models.RolePsychologist, "other@uni.edu")
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")
	otherStudent := env.createUser(t, models.RoleStudent, "otherstudent@uni.edu")

	mine := env.addSessionNote(t, student.ID, psych.ID, "Intake")
	theirs := env.addSessionNote(t, student.ID, otherPsych.ID, "Second opinion")

	t.Run("StudentReadsOwnNotes", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/session-notes/student/"+student.ID, env.tokenFor(t, &student), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var notes []models.SessionNote
		decodeData(t, rec, &notes)
		assert.Len(t, notes, 2)
	})

	t.Run("OtherStudentForbidden", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/session-notes/student/"+student.ID, env.tokenFor(t, &otherStudent), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("PsychologistSeesOnlyAuthoredNotes", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/session-notes/student/"+student.ID, env.tokenFor(t, &psych), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var notes []models.SessionNote
		decodeData(t, rec, &notes)
		require.Len(t, notes, 1)
		assert.Equal(t, mine.ID, notes[0].ID)
	})

	t.Run("UninvolvedPsychologistCannotReadByID", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/session-notes/"+theirs.ID, env.tokenFor(t, &psych), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("StudentReadsOwnNoteByID", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/session-notes/"+theirs.ID, env.tokenFor(t, &student), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUpdateAndDeleteSessionNote(t *testing.T) {
	env := setupTestEnv(t)
	psych := env.createUser(t, models.RolePsychologist, "psych@uni.edu")
	otherPsych := env.createUser(t, models.RolePsychologist, "other@uni.edu")
	student := env.createUser(t, models.RoleStudent, "student@uni.edu")

	note := env.addSessionNote(t, student.ID, psych.ID, "Draft")

	t.Run("NonAuthorCannotEdit", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/session-notes/"+note.ID, env.tokenFor(t, &otherPsych), map[string]interface{}{
			"title": "Hijacked",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AuthorEdits", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/api/v1/session-notes/"+note.ID, env.tokenFor(t, &psych), map[string]interface{}{
			"title":   "Final",
			"summary": "Reviewed and signed off",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated models.SessionNote
		require.NoError(t, env.DB.First(&updated, "id = ?", note.ID).Error)
		assert.Equal(t, "Final", updated.Title)
		assert.Equal(t, "Reviewed and signed off", updated.Summary)
	})

	t.Run("NonAuthorCannotDelete", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/api/v1/session-notes/"+note.ID, env.tokenFor(t, &otherPsych), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AuthorDeletes", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/api/v1/session-notes/"+note.ID, env.tokenFor(t, &psych), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var count int64
		env.DB.Model(&models.SessionNote{}).Where("id = ?", note.ID).Count(&count)
		assert.EqualValues(t, 0, count)

		rec = env.request(t, http.MethodDelete, "/api/v1/session-notes/"+note.ID, env.tokenFor(t, &psych), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
