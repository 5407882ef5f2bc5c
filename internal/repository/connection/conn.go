package connection

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is one live socket bound to a user of a room. Writes are serialized
// because gorilla connections allow a single concurrent writer.
type Conn struct {
	ID       string
	RoomID   string
	UserID   string
	JoinedAt time.Time

	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(id, roomID, userID string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:       id,
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
		ws:       ws,
	}
}

func (c *Conn) WS() *websocket.Conn {
	return c.ws
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.ws.WriteJSON(v)
}

func (c *Conn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close sends a close frame with code and reason, then closes the socket.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))

	return c.ws.Close()
}
