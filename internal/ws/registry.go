package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// ConnectionRegistry maps user identities to their live connections. A user
// holding several simultaneous connections (multi-tab, multi-device) receives
// every broadcast on each of them.
type ConnectionRegistry struct {
	groups map[int]map[*Conn]bool
	mu     sync.RWMutex
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{groups: make(map[int]map[*Conn]bool)}
}

// Join adds a connection to the user's broadcast group.
func (r *ConnectionRegistry) Join(userID int, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[userID]; !ok {
		r.groups[userID] = make(map[*Conn]bool)
	}
	r.groups[userID][conn] = true
}

// Leave removes a connection from the user's broadcast group.
func (r *ConnectionRegistry) Leave(userID int, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.groups[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.groups, userID)
		}
	}
}

// GroupSize reports the number of live connections for a user.
func (r *ConnectionRegistry) GroupSize(userID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[userID])
}

// BroadcastTo sends the event to every connection of every listed user.
// Delivery is at-most-once: a write failure closes and drops the connection,
// and nothing is queued or retried.
func (r *ConnectionRegistry) BroadcastTo(userIDs []int, event models.ServerFrame) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	r.mu.RLock()
	var conns []*Conn
	for _, userID := range userIDs {
		for conn := range r.groups[userID] {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.writeMessage(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			r.Leave(conn.Info.UserID, conn)
			r.publishWSError(conn, err)
		}
	}
}

func (r *ConnectionRegistry) publishWSError(conn *Conn, err error) {
	info := conn.Info
	observability.IncWSEvent("ws_error")
	_ = observability.PublishEvent(context.Background(), "ws_events.messaging",
		wsEventEnvelope("ws_error", info, time.Since(info.ConnectedAt), err.Error()),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}

func wsEventEnvelope(event string, info ConnInfo, duration time.Duration, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration.Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}
}
