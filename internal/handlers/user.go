package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/internal/websocket"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

type UserHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewUserHandler(db *database.Database, hub *websocket.Hub) *UserHandler {
	return &UserHandler{db: db, hub: hub}
}

// GetMe возвращает информацию о текущем пользователе
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.db.GetUser(currentUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}

	c.JSON(http.StatusOK, dto.OK(services.MemberFromModel(user, true)))
}

// UpdateMe обновляет имя и аватар текущего пользователя
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name" binding:"max=100"`
		AvatarURL   string `json:"avatar_url" binding:"omitempty,url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUser(currentUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}

	// Обновляем только переданные поля
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.db.UpdateUser(user); err != nil {
		fail(c, http.StatusInternalServerError, "failed to update user")
		return
	}

	c.JSON(http.StatusOK, dto.OK(services.MemberFromModel(user, true)))
}

// SearchUsers поиск пользователей по username
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, "query parameter is required")
		return
	}

	users, err := h.db.SearchUsersByUsername(query)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to search users")
		return
	}

	me := currentUserID(c)
	result := make([]chatproto.Member, 0, len(users))
	for i := range users {
		if users[i].ID == me {
			continue
		}
		result = append(result, services.MemberFromModel(&users[i], h.hub.IsUserOnline(users[i].ID)))
	}

	c.JSON(http.StatusOK, dto.OK(result))
}
