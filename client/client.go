// Package client is a Go client for the messaging service. It merges the
// three message sources (initial load, periodic polling, live websocket
// events) through one per-conversation de-duplication state, so a message is
// rendered at most once no matter how many paths deliver it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
)

const (
	defaultPollInterval = 5 * time.Second
	ackTimeout          = 10 * time.Second
)

var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrSendRejected         = errors.New("send rejected")
)

// Options configures a Client.
type Options struct {
	BaseURL string
	WSURL   string
	Token   string
	// PollInterval defaults to 5s.
	PollInterval time.Duration
	// OnMessage is invoked once per newly rendered message of the active
	// conversation.
	OnMessage func(models.Message)
	// OnError receives background load/poll failures.
	OnError func(error)
}

// Client talks to the messaging service over REST with an optional live
// websocket session.
type Client struct {
	opts Options
	http *http.Client

	mu         sync.Mutex
	state      *ViewState
	cancelPoll context.CancelFunc

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan models.ServerFrame
}

// New builds a Client.
func New(opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Client{
		opts:    opts,
		http:    &http.Client{Timeout: 10 * time.Second},
		pending: make(map[string]chan models.ServerFrame),
	}
}

// Connect opens the live channel. Without it the client still works through
// REST sends and polling alone.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.opts.WSURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close shuts down the live channel and stops polling.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.cancelPoll != nil {
		c.cancelPoll()
		c.cancelPoll = nil
	}
	c.state = nil
	c.mu.Unlock()

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Switch makes conversationID the active conversation: all per-conversation
// state is reset, an initial full load runs, and the poll ticker restarts.
// Late responses for the previous conversation are dropped by the fresh state.
func (c *Client) Switch(ctx context.Context, conversationID int) error {
	c.mu.Lock()
	if c.cancelPoll != nil {
		c.cancelPoll()
	}
	c.state = NewViewState(conversationID)
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancelPoll = cancel
	c.mu.Unlock()

	if err := c.poll(ctx, conversationID); err != nil {
		return err
	}

	go c.pollLoop(pollCtx, conversationID)
	return nil
}

// Send delivers text to the active conversation, preferring the live channel
// and falling back to REST. The resulting message goes through the same merge
// path as broadcasts and polls, so the sender's own copy is never duplicated.
func (c *Client) Send(ctx context.Context, text string) (models.Message, error) {
	c.mu.Lock()
	if c.state == nil {
		c.mu.Unlock()
		return models.Message{}, ErrNoActiveConversation
	}
	conversationID := c.state.ConversationID()
	c.mu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn != nil {
		return c.sendOverChannel(ctx, conn, conversationID, text)
	}
	return c.sendOverREST(ctx, conversationID, text)
}

func (c *Client) sendOverChannel(ctx context.Context, conn *websocket.Conn, conversationID int, text string) (models.Message, error) {
	ref := uuid.NewString()
	ackCh := make(chan models.ServerFrame, 1)
	c.pendingMu.Lock()
	c.pending[ref] = ackCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, ref)
		c.pendingMu.Unlock()
	}()

	frame := models.ClientFrame{
		Type:           models.EventTypeSend,
		Ref:            ref,
		ConversationID: conversationID,
		Text:           text,
	}
	c.writeMu.Lock()
	err := conn.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		return models.Message{}, err
	}

	select {
	case ack := <-ackCh:
		if ack.OK == nil || !*ack.OK || ack.Message == nil {
			return models.Message{}, fmt.Errorf("%w: %s", ErrSendRejected, ack.Error)
		}
		c.deliver(*ack.Message)
		return *ack.Message, nil
	case <-time.After(ackTimeout):
		return models.Message{}, errors.New("send acknowledgement timed out")
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}

func (c *Client) sendOverREST(ctx context.Context, conversationID int, text string) (models.Message, error) {
	body, _ := json.Marshal(map[string]string{"text": text})
	endpoint := fmt.Sprintf("%s/messages/conversations/%d/messages", c.opts.BaseURL, conversationID)

	var msg models.Message
	if err := c.doJSON(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &msg); err != nil {
		return models.Message{}, err
	}
	c.deliver(msg)
	return msg, nil
}

// ListConversations fetches the caller's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	err := c.doJSON(ctx, http.MethodGet, c.opts.BaseURL+"/messages/conversations", nil, &resp)
	return resp.Conversations, err
}

// StartConversation finds or creates a direct conversation with peerID.
func (c *Client) StartConversation(ctx context.Context, peerID int) (models.Conversation, error) {
	body, _ := json.Marshal(map[string]int{"user_id": peerID})
	var convo models.Conversation
	err := c.doJSON(ctx, http.MethodPost, c.opts.BaseURL+"/messages/conversations", bytes.NewReader(body), &convo)
	return convo, err
}

func (c *Client) pollLoop(ctx context.Context, conversationID int) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.poll(ctx, conversationID); err != nil && ctx.Err() == nil {
				c.reportError(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) poll(ctx context.Context, conversationID int) error {
	c.mu.Lock()
	if c.state == nil || c.state.ConversationID() != conversationID {
		c.mu.Unlock()
		return nil
	}
	since := c.state.Since()
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/messages/conversations/%d/messages", c.opts.BaseURL, conversationID)
	if since != nil {
		endpoint += "?since=" + since.UTC().Format(time.RFC3339Nano)
	}

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return err
	}
	for _, msg := range resp.Messages {
		c.deliver(msg)
	}
	return nil
}

// deliver funnels every message source through the active view state. The
// state is the single arbiter of "already shown": anything it rejects is
// dropped, including messages for a conversation that is no longer active.
func (c *Client) deliver(msg models.Message) {
	c.mu.Lock()
	fresh := c.state != nil && c.state.Merge(msg)
	c.mu.Unlock()

	if fresh && c.opts.OnMessage != nil {
		c.opts.OnMessage(msg)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var frame models.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			return
		}

		switch frame.Type {
		case models.EventTypeNewMessage:
			if frame.Message != nil {
				c.deliver(*frame.Message)
			}
		case models.EventTypeAck:
			c.pendingMu.Lock()
			ch, ok := c.pending[frame.Ref]
			c.pendingMu.Unlock()
			if ok {
				select {
				case ch <- frame:
				default:
				}
			}
		}
	}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, endpoint, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, endpoint, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) reportError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
		return
	}
	log.Printf("messaging client: %v", err)
}
