package handlers

import (
	"encoding/json"

	"github.com/thereayou/taskboard-chat/internal/services"
	"github.com/thereayou/taskboard-chat/internal/websocket"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

var _ websocket.FrameHandler = (*MessageHandler)(nil)

// MessageHandler обрабатывает события, пришедшие по сокету
type MessageHandler struct {
	chat *services.ChatService
	hub  *websocket.Hub
}

func NewMessageHandler(chat *services.ChatService, hub *websocket.Hub) *MessageHandler {
	return &MessageHandler{chat: chat, hub: hub}
}

func (h *MessageHandler) HandleFrame(client *websocket.Client, frame *chatproto.Frame) error {
	switch frame.Event {
	case chatproto.EventJoinRoom:
		return h.handleJoin(client, frame)

	case chatproto.EventLeaveRoom:
		if frame.RoomID == nil {
			return websocket.ErrRoomRequired
		}
		h.hub.LeaveRoom(client, *frame.RoomID)
		return nil

	case chatproto.EventSendMessage:
		return h.handleSendMessage(client, frame)

	case chatproto.EventTyping:
		return h.handleTyping(client, frame)

	default:
		return websocket.ErrUnknownEvent
	}
}

func (h *MessageHandler) handleJoin(client *websocket.Client, frame *chatproto.Frame) error {
	if frame.RoomID == nil {
		return websocket.ErrRoomRequired
	}

	if err := h.chat.CanJoin(client.UserID, *frame.RoomID); err != nil {
		return err
	}

	h.hub.JoinRoom(client, *frame.RoomID)
	return nil
}

func (h *MessageHandler) handleSendMessage(client *websocket.Client, frame *chatproto.Frame) error {
	if frame.RoomID == nil {
		return websocket.ErrRoomRequired
	}

	var payload chatproto.SendMessagePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return websocket.ErrInvalidMessage
	}

	_, err := h.chat.SendMessage(services.SendMessageInput{
		UserID:   client.UserID,
		RoomID:   *frame.RoomID,
		Content:  payload.Content,
		Type:     payload.Type,
		ClientID: payload.ClientID,
	})
	return err
}

func (h *MessageHandler) handleTyping(client *websocket.Client, frame *chatproto.Frame) error {
	if frame.RoomID == nil {
		return websocket.ErrRoomRequired
	}

	// Печатать можно только в открытой комнате
	if !client.IsInRoom(*frame.RoomID) {
		return websocket.ErrUserNotInRoom
	}

	var payload chatproto.TypingPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return websocket.ErrInvalidMessage
	}

	return h.chat.Typing(services.TypingInput{
		UserID:   client.UserID,
		UserName: client.UserName,
		RoomID:   *frame.RoomID,
		IsTyping: payload.IsTyping,
		ClientID: client.ID,
	})
}
