package chatproto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrUnknownEvent = errors.New("unknown event")
)

// Event разобранное и проверенное серверное событие
type Event interface {
	Name() EventName
}

type NewMessage struct {
	Message Message
}

type UserTyping struct {
	RoomID   uuid.UUID
	UserID   uuid.UUID
	UserName string
	IsTyping bool
}

type UserStatus struct {
	UserID uuid.UUID
	Online bool
}

type TaskReminder struct {
	UserID    uuid.UUID
	TaskID    uuid.UUID
	ProjectID uuid.UUID
	Title     string
	DueAt     time.Time
	SentAt    time.Time
}

type RoomUsers struct {
	RoomID  uuid.UUID
	UserIDs []uuid.UUID
}

type Ping struct{}

type ErrorEvent struct {
	Message string
}

func (*NewMessage) Name() EventName   { return EventNewMessage }
func (*UserTyping) Name() EventName   { return EventUserTyping }
func (*TaskReminder) Name() EventName { return EventTaskReminder }
func (*RoomUsers) Name() EventName    { return EventRoomUsers }
func (*Ping) Name() EventName         { return EventPing }
func (*ErrorEvent) Name() EventName   { return EventError }

func (e *UserStatus) Name() EventName {
	if e.Online {
		return EventUserOnline
	}
	return EventUserOffline
}

// Decode разбирает кадр от сервера. Некорректные кадры отбрасываются здесь,
// а не в состоянии компонентов.
func Decode(raw []byte) (Event, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return DecodeFrame(frame)
}

func DecodeFrame(frame Frame) (Event, error) {
	switch frame.Event {
	case EventNewMessage:
		var p NewMessagePayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if p.Message.RoomID == uuid.Nil {
			return nil, invalid(frame, "message.room_id is required")
		}
		if p.Message.ID == uuid.Nil && p.Message.ClientID == "" {
			return nil, invalid(frame, "message.id is required")
		}
		return &NewMessage{Message: p.Message}, nil

	case EventUserTyping:
		var p UserTypingPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if frame.RoomID == nil || *frame.RoomID == uuid.Nil {
			return nil, invalid(frame, "room_id is required")
		}
		if p.UserID == uuid.Nil {
			return nil, invalid(frame, "user_id is required")
		}
		return &UserTyping{
			RoomID:   *frame.RoomID,
			UserID:   p.UserID,
			UserName: p.UserName,
			IsTyping: p.IsTyping,
		}, nil

	case EventUserOnline, EventUserOffline:
		if frame.UserID == uuid.Nil {
			return nil, invalid(frame, "user_id is required")
		}
		return &UserStatus{UserID: frame.UserID, Online: frame.Event == EventUserOnline}, nil

	case EventTaskReminder:
		var p TaskReminderPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		if p.TaskID == uuid.Nil {
			return nil, invalid(frame, "task_id is required")
		}
		return &TaskReminder{
			UserID:    frame.UserID,
			TaskID:    p.TaskID,
			ProjectID: p.ProjectID,
			Title:     p.Title,
			DueAt:     p.DueAt,
			SentAt:    frame.Timestamp,
		}, nil

	case EventRoomUsers:
		if frame.RoomID == nil {
			return nil, invalid(frame, "room_id is required")
		}
		var users []uuid.UUID
		if err := unmarshalData(frame, &users); err != nil {
			return nil, err
		}
		return &RoomUsers{RoomID: *frame.RoomID, UserIDs: users}, nil

	case EventPing:
		return &Ping{}, nil

	case EventError:
		var p ErrorPayload
		if err := unmarshalData(frame, &p); err != nil {
			return nil, err
		}
		return &ErrorEvent{Message: p.Error}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
}

func unmarshalData(frame Frame, v interface{}) error {
	if len(frame.Data) == 0 {
		return invalid(frame, "data is required")
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFrame, frame.Event, err)
	}
	return nil
}

func invalid(frame Frame, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidFrame, frame.Event, reason)
}
