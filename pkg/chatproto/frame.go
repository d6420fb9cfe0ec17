package chatproto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	// От клиента к серверу
	EventJoinRoom    EventName = "join_room"
	EventLeaveRoom   EventName = "leave_room"
	EventSendMessage EventName = "send_message"
	EventTyping      EventName = "typing"
	EventPong        EventName = "pong"

	// От сервера к клиенту
	EventNewMessage   EventName = "new_message"
	EventUserTyping   EventName = "user_typing"
	EventUserOnline   EventName = "user_online"
	EventUserOffline  EventName = "user_offline"
	EventTaskReminder EventName = "task_reminder"
	EventRoomUsers    EventName = "room_users"
	EventPing         EventName = "ping"
	EventError        EventName = "error"
)

// Frame единица обмена по websocket
type Frame struct {
	Event     EventName       `json:"event"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type SendMessagePayload struct {
	Content  string `json:"content"`
	Type     string `json:"type,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

type TypingPayload struct {
	IsTyping bool `json:"is_typing"`
}

type NewMessagePayload struct {
	Message Message `json:"message"`
}

type UserTypingPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	IsTyping bool      `json:"is_typing"`
}

type TaskReminderPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// Encode собирает кадр и сериализует его
func Encode(event EventName, roomID *uuid.UUID, userID uuid.UUID, data interface{}) ([]byte, error) {
	frame := Frame{
		Event:     event,
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		frame.Data = raw
	}

	return json.Marshal(frame)
}
