package chatproto

import (
	"time"

	"github.com/google/uuid"
)

type RoomType string

const (
	RoomDirect RoomType = "direct"
	RoomGroup  RoomType = "group"
)

// Member участник комнаты
type Member struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	IsOnline    bool      `json:"is_online"`
}

// Name возвращает отображаемое имя, при его отсутствии username
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

type Project struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type LastMessage struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Room struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Type        RoomType     `json:"type"`
	ProjectID   *uuid.UUID   `json:"project_id,omitempty"`
	Project     *Project     `json:"project,omitempty"`
	Members     []Member     `json:"members"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Message сообщение в комнате. Локальное (ещё не подтверждённое сервером)
// сообщение имеет нулевой ID и заполненный ClientID.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	ClientID  string     `json:"client_id,omitempty"`
	RoomID    uuid.UUID  `json:"room_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	User      Member     `json:"user"`
}

func (m Message) Pending() bool {
	return m.ID == uuid.Nil
}

// Last возвращает превью сообщения для списка комнат
func (m Message) Last() *LastMessage {
	return &LastMessage{
		ID:        m.ID,
		Content:   m.Content,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}
