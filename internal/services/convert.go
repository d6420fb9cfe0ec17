package services

import (
	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

func MemberFromModel(u *models.User, online bool) chatproto.Member {
	return chatproto.Member{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsOnline:    online,
	}
}

func MessageFromModel(m *models.Message) chatproto.Message {
	msg := chatproto.Message{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Content:   m.Content,
		Type:      m.Type,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
	}
	if m.User.ID != m.UserID {
		// Автор не подгружен
		msg.User = chatproto.Member{ID: m.UserID}
	} else {
		msg.User = MemberFromModel(&m.User, false)
	}
	return msg
}

// RoomFromModel собирает комнату для списка. online сообщает, подключён ли
// участник; last может быть nil.
func RoomFromModel(r *models.Room, last *models.Message, online func(u *models.User) bool) chatproto.Room {
	room := chatproto.Room{
		ID:        r.ID,
		Name:      r.Name,
		Type:      chatproto.RoomType(r.Type),
		ProjectID: r.ProjectID,
		Members:   make([]chatproto.Member, 0, len(r.Members)),
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}

	if r.Project != nil {
		room.Project = &chatproto.Project{ID: r.Project.ID, Name: r.Project.Name}
	}

	for i := range r.Members {
		m := &r.Members[i]
		room.Members = append(room.Members, MemberFromModel(m, online != nil && online(m)))
	}

	if last != nil {
		room.LastMessage = MessageFromModel(last).Last()
	}

	return room
}
