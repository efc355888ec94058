package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-care-server/internal/models"
)

func newTestClient(userID string, buffer int) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) Notification {
	t.Helper()
	select {
	case data := <-c.Send:
		var n Notification
		require.NoError(t, json.Unmarshal(data, &n))
		return n
	default:
		t.Fatal("expected a notification, channel empty")
		return Notification{}
	}
}

func TestPublishReachesBothParticipantRooms(t *testing.T) {
	hub := NewHub(nil)
	student := newTestClient("student-1", 4)
	psych := newTestClient("psych-1", 4)
	bystander := newTestClient("student-2", 4)
	hub.Register(student)
	hub.Register(psych)
	hub.Register(bystander)

	appt := &models.Appointment{Status: models.StatusConfirmed}
	hub.Publish(Notification{
		Type:        EventAppointmentConfirmed,
		Sender:      "psych-1",
		Recipient:   "student-1",
		Appointment: appt,
	})

	got := receive(t, student)
	assert.Equal(t, EventAppointmentConfirmed, got.Type)
	assert.Equal(t, "psych-1", got.Sender)
	assert.Equal(t, "student-1", got.Recipient)
	assert.False(t, got.Timestamp.IsZero())

	assert.Equal(t, EventAppointmentConfirmed, receive(t, psych).Type)

	// Uninvolved rooms never see the event.
	assert.Empty(t, bystander.Send)
}

func TestPublishToDisconnectedUserIsDropped(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(Notification{
		Type:      EventAppointmentBooked,
		Sender:    "student-1",
		Recipient: "psych-1",
	})
	// No panic, no delivery: best-effort at-most-once.
	assert.Equal(t, 0, hub.ClientCount())
}

func TestSenderEqualsRecipientDeliveredOnce(t *testing.T) {
	hub := NewHub(nil)
	c := newTestClient("user-1", 4)
	hub.Register(c)

	hub.Publish(Notification{Type: EventAppointmentModified, Sender: "user-1", Recipient: "user-1"})

	assert.Len(t, c.Send, 1)
}

func TestMultipleSessionsPerRoom(t *testing.T) {
	hub := NewHub(nil)
	first := newTestClient("student-1", 4)
	second := newTestClient("student-1", 4)
	hub.Register(first)
	hub.Register(second)
	assert.Equal(t, 2, hub.RoomCount("student-1"))

	hub.Publish(Notification{Type: EventAppointmentCancelled, Sender: "psych-1", Recipient: "student-1"})

	assert.Len(t, first.Send, 1)
	assert.Len(t, second.Send, 1)
}

func TestSlowClientIsSkippedNotBlocked(t *testing.T) {
	hub := NewHub(nil)
	slow := newTestClient("student-1", 1)
	hub.Register(slow)

	hub.Publish(Notification{Type: EventAppointmentBooked, Sender: "psych-1", Recipient: "student-1"})
	// Buffer now full; this publish must not block and the event is lost.
	hub.Publish(Notification{Type: EventAppointmentModified, Sender: "psych-1", Recipient: "student-1"})

	assert.Len(t, slow.Send, 1)
}

func TestUnregisterClosesSendAndEmptiesRoom(t *testing.T) {
	hub := NewHub(nil)
	c := newTestClient("student-1", 4)
	hub.Register(c)
	hub.Unregister(c)

	_, open := <-c.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.RoomCount("student-1"))

	// Double unregister is a no-op.
	hub.Unregister(c)
}
