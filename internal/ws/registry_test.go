package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

// newTestConnPair upgrades a real websocket connection and returns the server
// side wrapped in a Conn plus the client side for reading.
func newTestConnPair(t *testing.T, userID int) (*Conn, *websocket.Conn) {
	t.Helper()
	serverConns := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverSide := <-serverConns
	conn := NewConn(serverSide, ConnInfo{ConnID: newConnID(), UserID: userID, ConnectedAt: time.Now()})
	t.Cleanup(func() { conn.Close() })
	return conn, clientConn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.ServerFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame models.ServerFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestRegistryJoinAndLeave(t *testing.T) {
	registry := NewConnectionRegistry()
	first, _ := newTestConnPair(t, 1)
	second, _ := newTestConnPair(t, 1)

	registry.Join(1, first)
	registry.Join(1, second)
	assert.Equal(t, 2, registry.GroupSize(1))

	registry.Leave(1, first)
	assert.Equal(t, 1, registry.GroupSize(1))

	registry.Leave(1, second)
	assert.Equal(t, 0, registry.GroupSize(1))
}

func TestBroadcastReachesEveryConnectionOfEveryParticipant(t *testing.T) {
	registry := NewConnectionRegistry()

	aliceTab1, aliceClient1 := newTestConnPair(t, 1)
	aliceTab2, aliceClient2 := newTestConnPair(t, 1)
	bob, bobClient := newTestConnPair(t, 2)

	registry.Join(1, aliceTab1)
	registry.Join(1, aliceTab2)
	registry.Join(2, bob)

	msg := models.Message{ID: 7, ConversationID: 5, SenderID: 1, Text: "hello", CreatedAt: time.Now()}
	registry.BroadcastTo([]int{1, 2}, models.NewMessageFrame(msg))

	for _, clientConn := range []*websocket.Conn{aliceClient1, aliceClient2, bobClient} {
		frame := readFrame(t, clientConn)
		assert.Equal(t, models.EventTypeNewMessage, frame.Type)
		require.NotNil(t, frame.Message)
		assert.Equal(t, "hello", frame.Message.Text)
		assert.Equal(t, 1, frame.Message.SenderID)
	}
}

func TestBroadcastToAbsentUserIsNoop(t *testing.T) {
	registry := NewConnectionRegistry()
	registry.BroadcastTo([]int{42}, models.NewMessageFrame(models.Message{ID: 1}))
	assert.Equal(t, 0, registry.GroupSize(42))
}
