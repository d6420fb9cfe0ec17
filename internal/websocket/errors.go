package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrRoomRequired    = errors.New("room_id is required")
	ErrUserNotInRoom   = errors.New("user not in room")
	ErrHubStopped      = errors.New("hub stopped")
)
