package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

// SendMessageRequest тело POST /chat/rooms/:id/messages
type SendMessageRequest struct {
	Content  string `json:"content" binding:"required"`
	Type     string `json:"type,omitempty"` // text, image, file
	ClientID string `json:"client_id,omitempty"`
}

// MessagesPage страница истории, сообщения от старых к новым
type MessagesPage struct {
	Messages []chatproto.Message `json:"messages"`
	Page     int                 `json:"page"`
	Limit    int                 `json:"limit"`
	HasMore  bool                `json:"has_more"`
}

type CreateRoomRequest struct {
	Name      string      `json:"name" binding:"required,max=100"`
	ProjectID *uuid.UUID  `json:"project_id"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

type DirectRoomRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

type CreateProjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type ProjectResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTaskRequest struct {
	Title      string     `json:"title" binding:"required,max=200"`
	AssigneeID *uuid.UUID `json:"assignee_id"`
	DueAt      *time.Time `json:"due_at"`
}

type TaskResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	Title      string     `json:"title"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	Done       bool       `json:"done"`
	CreatedAt  time.Time  `json:"created_at"`
}
