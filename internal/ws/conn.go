package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnInfo carries the identity and trace context bound to one connection at
// handshake time.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Conn wraps a websocket connection with a write lock. The broadcast path and
// the read loop's acks write concurrently; gorilla allows one writer at a time.
type Conn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	Info ConnInfo
}

// NewConn wraps an upgraded websocket connection.
func NewConn(ws *websocket.Conn, info ConnInfo) *Conn {
	return &Conn{ws: ws, Info: info}
}

func (c *Conn) writeMessage(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
