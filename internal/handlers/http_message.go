package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type HTTPMessageHandler struct {
	db   *database.Database
	chat *services.ChatService
}

func NewHTTPMessageHandler(db *database.Database, chat *services.ChatService) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db, chat: chat}
}

// GetRoomMessages страница истории: ?page=1 самые свежие, внутри страницы
// от старых к новым
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	member, err := h.db.IsMember(currentUserID(c), roomID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !member {
		if _, err := h.db.GetRoom(roomID); database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "room not found")
			return
		}
		fail(c, http.StatusForbidden, services.ErrNotMember.Error())
		return
	}

	page := queryInt(c, "page", 1, 1, 1<<20)
	limit := queryInt(c, "limit", defaultPageSize, 1, maxPageSize)

	messages, hasMore, err := h.db.GetRoomMessages(roomID, page, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get messages")
		return
	}

	result := make([]chatproto.Message, len(messages))
	for i := range messages {
		result[i] = services.MessageFromModel(&messages[i])
	}

	c.JSON(http.StatusOK, dto.OK(dto.MessagesPage{
		Messages: result,
		Page:     page,
		Limit:    limit,
		HasMore:  hasMore,
	}))
}

// queryInt число из query, вне диапазона берётся значение по умолчанию
func queryInt(c *gin.Context, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket)
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.SendMessage(services.SendMessageInput{
		UserID:   currentUserID(c),
		RoomID:   roomID,
		Content:  req.Content,
		Type:     req.Type,
		ClientID: req.ClientID,
	})
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OK(msg))
}

// UpdateMessage редактирует своё сообщение
func (h *HTTPMessageHandler) UpdateMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	message, err := h.db.GetMessage(messageID)
	if err != nil {
		fail(c, http.StatusNotFound, "message not found")
		return
	}

	// Только автор может редактировать
	if message.UserID != currentUserID(c) {
		fail(c, http.StatusForbidden, "you can only edit your own messages")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	message.Content = req.Content
	message.EditedAt = &now

	if err := h.db.UpdateMessage(message); err != nil {
		fail(c, http.StatusInternalServerError, "failed to update message")
		return
	}

	c.JSON(http.StatusOK, dto.OK(services.MessageFromModel(message)))
}

// DeleteMessage удаляет своё сообщение
func (h *HTTPMessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	message, err := h.db.GetMessage(messageID)
	if err != nil {
		fail(c, http.StatusNotFound, "message not found")
		return
	}

	// Только автор может удалять
	if message.UserID != currentUserID(c) {
		fail(c, http.StatusForbidden, "you can only delete your own messages")
		return
	}

	if err := h.db.DeleteMessage(messageID); err != nil {
		fail(c, http.StatusInternalServerError, "failed to delete message")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrUnsupportedType):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotMember):
		fail(c, http.StatusForbidden, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "failed to send message")
	}
}
