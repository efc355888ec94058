// Package ws implements the real-time notification relay. Connected
// clients are grouped into rooms keyed by their own user ID; appointment
// events are broadcast to the rooms of the two participants. Delivery is
// at-most-once and best-effort: events for disconnected users are dropped
// and slow clients are skipped rather than blocked on.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-care-server/internal/models"
)

// EventType identifies the appointment mutation carried by a notification.
type EventType string

const (
	EventAppointmentBooked    EventType = "appointment_booked"
	EventAppointmentConfirmed EventType = "appointment_confirmed"
	EventAppointmentModified  EventType = "appointment_modified"
	EventAppointmentCancelled EventType = "appointment_cancelled"
)

// Notification is the payload pushed to both participants of an
// appointment mutation.
type Notification struct {
	Type        EventType           `json:"type"`
	Sender      string              `json:"sender"`
	Recipient   string              `json:"recipient"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// Publisher is the interface handlers use to emit notifications.
type Publisher interface {
	Publish(n Notification)
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single connected session of one user.
type Client struct {
	UserID string
	Send   chan []byte
	conn   Conn
}

// Hub tracks connected clients per user room. All operations are
// thread-safe via sync.RWMutex.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{} // user ID -> set of sessions
	logger *zap.Logger
}

// NewHub creates a Hub ready to manage client sessions.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register joins a client to the room of its own user ID.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.UserID] == nil {
		h.rooms[client.UserID] = make(map[*Client]struct{})
	}
	h.rooms[client.UserID][client] = struct{}{}
}

// Unregister removes a client from its room and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.rooms[client.UserID]
	if !ok {
		return
	}
	if _, ok := sessions[client]; !ok {
		return
	}
	delete(sessions, client)
	if len(sessions) == 0 {
		delete(h.rooms, client.UserID)
	}
	close(client.Send)
}

// Publish broadcasts a notification to the rooms of its sender and
// recipient. Users without a connected session miss the event; there is
// no outbox or replay.
func (h *Hub) Publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	h.deliverLocked(n.Recipient, data)
	if n.Sender != n.Recipient {
		h.deliverLocked(n.Sender, data)
	}
}

func (h *Hub) deliverLocked(userID string, data []byte) {
	for client := range h.rooms[userID] {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// RoomCount returns the number of sessions connected in a user's room.
func (h *Hub) RoomCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// ClientCount returns the total number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.rooms {
		n += len(sessions)
	}
	return n
}
