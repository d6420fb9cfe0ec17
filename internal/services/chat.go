package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const maxContentLength = 4000

var (
	ErrEmptyContent    = errors.New("message content is empty")
	ErrContentTooLong  = errors.New("message content is too long")
	ErrNotMember       = errors.New("you are not a member of this room")
	ErrUnsupportedType = errors.New("unsupported message type")
)

type ChatService struct {
	db  DatabaseService
	hub Broadcaster
	now func() time.Time
}

func NewChatService(db DatabaseService, hub Broadcaster) *ChatService {
	return &ChatService{db: db, hub: hub, now: time.Now}
}

type SendMessageInput struct {
	UserID   uuid.UUID
	RoomID   uuid.UUID
	Content  string
	Type     string
	ClientID string
}

// SendMessage сохраняет сообщение и рассылает new_message всем участникам
// комнаты, во все их соединения. Так списки комнат обновляются и у тех,
// кто комнату не открыл. client_id отправителя возвращается как есть.
func (s *ChatService) SendMessage(in SendMessageInput) (*chatproto.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > maxContentLength {
		return nil, ErrContentTooLong
	}

	msgType := in.Type
	switch msgType {
	case "":
		msgType = "text"
	case "text", "image", "file":
	default:
		return nil, ErrUnsupportedType
	}

	if err := s.checkMember(in.UserID, in.RoomID); err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:    in.RoomID,
		UserID:    in.UserID,
		Content:   content,
		Type:      msgType,
		CreatedAt: s.now(),
	}
	if err := s.db.SaveMessage(message); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	// Подгружаем автора для ответа
	if full, err := s.db.GetMessage(message.ID); err == nil {
		message = full
	}

	msg := MessageFromModel(message)
	msg.ClientID = in.ClientID

	if err := s.fanOut(msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (s *ChatService) fanOut(msg chatproto.Message) error {
	members, err := s.db.RoomMemberIDs(msg.RoomID)
	if err != nil {
		return fmt.Errorf("room members: %w", err)
	}

	frame, err := chatproto.Encode(chatproto.EventNewMessage, &msg.RoomID, msg.UserID, chatproto.NewMessagePayload{Message: msg})
	if err != nil {
		return err
	}

	for _, memberID := range members {
		s.hub.SendToUser(memberID, frame)
	}
	return nil
}

type TypingInput struct {
	UserID   uuid.UUID
	UserName string
	RoomID   uuid.UUID
	IsTyping bool
	// Соединение отправителя, ему кадр не отправляется
	ClientID uuid.UUID
}

// Typing рассылает user_typing открывшим комнату
func (s *ChatService) Typing(in TypingInput) error {
	frame, err := chatproto.Encode(chatproto.EventUserTyping, &in.RoomID, in.UserID, chatproto.UserTypingPayload{
		UserID:   in.UserID,
		UserName: in.UserName,
		IsTyping: in.IsTyping,
	})
	if err != nil {
		return err
	}

	s.hub.SendToRoomExcept(in.RoomID, frame, in.ClientID)
	return nil
}

// CanJoin проверяет, может ли пользователь открыть комнату
func (s *ChatService) CanJoin(userID, roomID uuid.UUID) error {
	return s.checkMember(userID, roomID)
}

func (s *ChatService) checkMember(userID, roomID uuid.UUID) error {
	ok, err := s.db.IsMember(userID, roomID)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrNotMember
		}
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
