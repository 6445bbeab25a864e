package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Authenticator resolves a bearer token to an account identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (clients.Identity, error)
}

// Handler authenticates websocket connections, joins them to the user's
// broadcast group and serves message:send frames.
type Handler struct {
	registry *ConnectionRegistry
	svc      *service.MessageService
	auth     Authenticator
}

// NewHandler constructs a Handler.
func NewHandler(registry *ConnectionRegistry, svc *service.MessageService, auth Authenticator) *Handler {
	return &Handler{registry: registry, svc: svc, auth: auth}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle performs the handshake and registers the connection. The bearer token
// comes from the Authorization header or, for browser clients, the token query
// parameter.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	identity, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, clients.ErrAccountInactive) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account is not active"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	traceID := span.SpanContext().TraceID().String()
	conn := NewConn(wsConn, ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.ID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	})
	h.registry.Join(identity.ID, conn)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.messaging",
		wsEventEnvelope("ws_connect", conn.Info, 0, ""),
		observability.BuildHeaders(requestID, traceID))

	// The request context is canceled once this handler returns; the
	// connection outlives it.
	go h.readLoop(context.Background(), conn)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	var closeReason string
	defer func() {
		h.registry.Leave(conn.Info.UserID, conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.messaging",
			wsEventEnvelope("ws_disconnect", conn.Info, time.Since(conn.Info.ConnectedAt), closeReason),
			observability.BuildHeaders(conn.Info.RequestID, conn.Info.TraceID))
		conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("websocket invalid frame from conn %s: %v", conn.Info.ConnID, err)
			continue
		}

		switch frame.Type {
		case models.EventTypeSend:
			h.handleSend(ctx, conn, frame)
		default:
			log.Printf("websocket unknown frame type %q from conn %s", frame.Type, conn.Info.ConnID)
		}
	}
}

// handleSend answers the frame with exactly one ack, ok or structured error.
func (h *Handler) handleSend(ctx context.Context, conn *Conn, frame models.ClientFrame) {
	if frame.ConversationID <= 0 || strings.TrimSpace(frame.Text) == "" {
		h.ack(conn, models.AckFrame(frame.Ref, nil, "invalid payload"))
		return
	}

	msg, err := h.svc.Send(ctx, conn.Info.UserID, frame.ConversationID, frame.Text, "ws")
	if err != nil {
		h.ack(conn, models.AckFrame(frame.Ref, nil, sendErrorText(err)))
		return
	}
	h.ack(conn, models.AckFrame(frame.Ref, &msg, ""))
}

func (h *Handler) ack(conn *Conn, frame models.ServerFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("ack marshal error: %v", err)
		return
	}
	if err := conn.writeMessage(payload); err != nil {
		log.Printf("websocket ack write error: %v", err)
	}
}

func (h *Handler) pingLoop(conn *Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func sendErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return "invalid payload"
	case errors.Is(err, repositories.ErrConversationNotFound):
		return "conversation not found"
	default:
		log.Printf("websocket send failed: %v", err)
		return "server error"
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
