package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/handlers/dto"
	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/internal/websocket"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

type RoomHandler struct {
	db  *database.Database
	hub *websocket.Hub
}

func NewRoomHandler(db *database.Database, hub *websocket.Hub) *RoomHandler {
	return &RoomHandler{db: db, hub: hub}
}

func (h *RoomHandler) online(u *models.User) bool {
	return h.hub.IsUserOnline(u.ID)
}

// loadMember достаёт комнату и проверяет, что пользователь в ней состоит.
// При ошибке ответ уже записан.
func (h *RoomHandler) loadMember(c *gin.Context) (*models.Room, bool) {
	roomID, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	room, err := h.db.GetRoom(roomID)
	if err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "room not found")
		} else {
			fail(c, http.StatusInternalServerError, "failed to get room")
		}
		return nil, false
	}

	if !room.HasMember(currentUserID(c)) {
		fail(c, http.StatusForbidden, services.ErrNotMember.Error())
		return nil, false
	}

	return room, true
}

// GetMyRooms комнаты пользователя, последние по активности первыми.
// ?project_id= ограничивает выборку комнатами проекта.
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	var projectID *uuid.UUID
	if raw := c.Query("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID = &id
	}

	rooms, err := h.db.GetUserRooms(currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to get rooms")
		return
	}

	result := make([]chatproto.Room, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		if projectID != nil && (room.ProjectID == nil || *room.ProjectID != *projectID) {
			continue
		}

		last, err := h.db.GetLastMessage(room.ID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "failed to get last message")
			return
		}

		result = append(result, services.RoomFromModel(room, last, h.online))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return lastActivity(result[i]).After(lastActivity(result[j]))
	})

	c.JSON(http.StatusOK, dto.OK(result))
}

func lastActivity(r chatproto.Room) time.Time {
	if r.LastMessage != nil {
		return r.LastMessage.CreatedAt
	}
	return r.CreatedAt
}

// CreateRoom создает групповую комнату, создатель становится участником
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := currentUserID(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.ProjectID != nil {
		if _, err := h.db.GetProject(*req.ProjectID); err != nil {
			fail(c, http.StatusNotFound, "project not found")
			return
		}
	}

	memberIDs := []uuid.UUID{userID}
	for _, id := range req.MemberIDs {
		if id != userID {
			memberIDs = append(memberIDs, id)
		}
	}

	members := make([]models.User, 0, len(memberIDs))
	for _, id := range memberIDs {
		user, err := h.db.GetUser(id)
		if err != nil {
			fail(c, http.StatusBadRequest, "unknown member "+id.String())
			return
		}
		members = append(members, *user)
	}

	room := &models.Room{
		Name:      req.Name,
		Type:      models.RoomTypeGroup,
		ProjectID: req.ProjectID,
		CreatedBy: userID,
		CreatedAt: time.Now(),
		Members:   members,
	}

	if err := h.db.CreateRoom(room); err != nil {
		fail(c, http.StatusInternalServerError, "failed to create room")
		return
	}

	// Загружаем полную информацию о комнате
	full, err := h.db.GetRoom(room.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load room")
		return
	}

	c.JSON(http.StatusCreated, dto.OK(services.RoomFromModel(full, nil, h.online)))
}

// CreateDirectRoom создает или получает direct комнату между двумя пользователями
func (h *RoomHandler) CreateDirectRoom(c *gin.Context) {
	userID := currentUserID(c)

	var req dto.DirectRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if userID == req.UserID {
		fail(c, http.StatusBadRequest, "cannot create direct room with yourself")
		return
	}

	room, err := h.db.GetOrCreateDirectRoom(userID, req.UserID)
	if err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, "failed to create direct room")
		return
	}

	last, _ := h.db.GetLastMessage(room.ID)
	c.JSON(http.StatusOK, dto.OK(services.RoomFromModel(room, last, h.online)))
}

// GetRoom получает информацию о конкретной комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}

	last, _ := h.db.GetLastMessage(room.ID)
	c.JSON(http.StatusOK, dto.OK(services.RoomFromModel(room, last, h.online)))
}

// UpdateRoom переименовывает групповую комнату
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}

	// Проверяем права (только создатель может обновлять)
	if room.CreatedBy != currentUserID(c) {
		fail(c, http.StatusForbidden, "only room creator can update room")
		return
	}
	if room.Type == models.RoomTypeDirect {
		fail(c, http.StatusBadRequest, "cannot rename direct room")
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	room.Name = req.Name
	if err := h.db.UpdateRoom(room); err != nil {
		fail(c, http.StatusInternalServerError, "failed to update room")
		return
	}

	c.JSON(http.StatusOK, dto.OK(services.RoomFromModel(room, nil, h.online)))
}

// DeleteRoom удаляет комнату вместе с сообщениями
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}

	// Только создатель может удалить комнату
	if room.CreatedBy != currentUserID(c) {
		fail(c, http.StatusForbidden, "only room creator can delete room")
		return
	}

	if err := h.db.DeleteRoom(room.ID); err != nil {
		fail(c, http.StatusInternalServerError, "failed to delete room")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}

// AddMember добавляет пользователя в групповую комнату
func (h *RoomHandler) AddMember(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}

	if room.Type == models.RoomTypeDirect {
		fail(c, http.StatusBadRequest, "cannot add members to direct room")
		return
	}

	// Проверяем лимит участников
	if len(room.Members) >= room.MaxMembers {
		fail(c, http.StatusBadRequest, "room is full")
		return
	}

	var req dto.DirectRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.db.AddUserToRoom(req.UserID, room.ID); err != nil {
		if database.IsNotFound(err) {
			fail(c, http.StatusNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, "failed to add member")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}

// LeaveRoom удаляет пользователя из комнаты
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}
	userID := currentUserID(c)

	// Нельзя покинуть direct комнату
	if room.Type == models.RoomTypeDirect {
		fail(c, http.StatusBadRequest, "cannot leave direct room")
		return
	}

	// Создатель не может покинуть комнату
	if room.CreatedBy == userID {
		fail(c, http.StatusBadRequest, "room creator cannot leave room")
		return
	}

	if err := h.db.RemoveUserFromRoom(userID, room.ID); err != nil {
		fail(c, http.StatusInternalServerError, "failed to leave room")
		return
	}

	c.JSON(http.StatusOK, dto.OK(nil))
}

// GetRoomMembers получает список участников комнаты
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	room, ok := h.loadMember(c)
	if !ok {
		return
	}

	members := make([]chatproto.Member, len(room.Members))
	for i := range room.Members {
		members[i] = services.MemberFromModel(&room.Members[i], h.online(&room.Members[i]))
	}

	c.JSON(http.StatusOK, dto.OK(members))
}
