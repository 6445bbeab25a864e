package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/service"
)

// UserDirectory resolves user identities to display data.
type UserDirectory interface {
	SearchUsers(ctx context.Context, query string) ([]clients.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]clients.User, error)
}

// MessageHandler serves the REST fallback API for conversations and messages.
type MessageHandler struct {
	svc       *service.MessageService
	directory UserDirectory
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc *service.MessageService, directory UserDirectory) *MessageHandler {
	return &MessageHandler{svc: svc, directory: directory}
}

// ListConversations returns the caller's conversations, most recently active
// first, with peer display names resolved in one bulk lookup.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	convos, err := h.svc.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	peerIDs := make([]int, 0, len(convos))
	for _, convo := range convos {
		peerIDs = append(peerIDs, convo.PeerOf(userID))
	}

	users, err := h.directory.BulkUsers(c.Request.Context(), peerIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}
	nameByID := map[int]string{}
	for _, u := range users {
		nameByID[u.ID] = u.Name
	}

	summaries := make([]models.ConversationSummary, 0, len(convos))
	for _, convo := range convos {
		peerID := convo.PeerOf(userID)
		summaries = append(summaries, models.ConversationSummary{
			ConversationID: convo.ID,
			PeerID:         peerID,
			PeerName:       nameByID[peerID],
			LastMessageAt:  convo.LastMessageAt,
			CreatedAt:      convo.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// StartConversation finds or creates the direct conversation with the target
// user.
func (h *MessageHandler) StartConversation(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	convo, err := h.svc.StartConversation(c.Request.Context(), userID, req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrSelfConversation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, convo)
}

// GetMessages returns conversation messages, optionally only those newer than
// the since cursor.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since cursor"})
			return
		}
		since = &parsed
	}

	userID := c.GetInt("userID")
	msgs, err := h.svc.ListMessages(c.Request.Context(), userID, conversationID, since, repositories.DefaultMessagePage)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message via the shared send path, so REST-originated
// sends reach live-connected peers immediately.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is required"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.Send(c.Request.Context(), userID, conversationID, req.Text, "rest")
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		case errors.Is(err, repositories.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// SearchUsers finds users to start a conversation with, excluding the caller.
func (h *MessageHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, []clients.User{})
		return
	}

	users, err := h.directory.SearchUsers(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to search users"})
		return
	}

	userID := c.GetInt("userID")
	filtered := make([]clients.User, 0, len(users))
	for _, u := range users {
		if u.ID != userID {
			filtered = append(filtered, u)
		}
	}

	c.JSON(http.StatusOK, filtered)
}
