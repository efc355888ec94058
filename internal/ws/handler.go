package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillawebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"campus-care-server/internal/config"
	"campus-care-server/internal/utils"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS layer on the REST surface.
	},
}

// SocketHandler upgrades HTTP connections to WebSocket and binds each
// session to the room of the authenticated user.
type SocketHandler struct {
	hub    *Hub
	cfg    *config.Config
	logger *zap.Logger
}

// NewSocketHandler creates a handler bound to the given hub.
func NewSocketHandler(hub *Hub, cfg *config.Config, logger *zap.Logger) *SocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketHandler{hub: hub, cfg: cfg, logger: logger}
}

// HandleConnect authenticates the caller, upgrades the connection, joins
// the session to the caller's own room and starts the pumps. The token is
// taken from the `token` query parameter since browsers cannot set headers
// on WebSocket dials.
func (sh *SocketHandler) HandleConnect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Unauthorized(c, "token query parameter required")
		return
	}

	claims, err := utils.ValidateToken(token, sh.cfg.JWTSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid token: "+err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sh.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		UserID: claims.UserID,
		Send:   make(chan []byte, 256),
		conn:   &gorillaConnAdapter{conn},
	}

	sh.hub.Register(client)
	sh.logger.Info("websocket client joined",
		zap.String("userId", client.UserID),
		zap.Int("sessions", sh.hub.RoomCount(client.UserID)))

	go sh.writePump(client)
	go sh.readPump(client)
}

// readPump drains inbound frames until the connection drops. Inbound
// payloads carry no commands (room membership is fixed at connect time),
// so their content is discarded.
func (sh *SocketHandler) readPump(client *Client) {
	defer func() {
		sh.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued notifications to the connection.
func (sh *SocketHandler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
