package chatsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

// journal общий журнал вызовов транспорта и загрузчиков
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.mu.Lock()
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type fakeTransport struct {
	*Registry
	log *journal
}

func newFakeTransport(log *journal) *fakeTransport {
	return &fakeTransport{Registry: NewRegistry(), log: log}
}

func (t *fakeTransport) JoinRoom(roomID uuid.UUID) error {
	t.log.add("join %s", roomID)
	return nil
}

func (t *fakeTransport) LeaveRoom(roomID uuid.UUID) error {
	t.log.add("leave %s", roomID)
	return nil
}

func (t *fakeTransport) SendMessage(roomID uuid.UUID, text, clientID string) error {
	t.log.add("send %s %q", roomID, text)
	return nil
}

func (t *fakeTransport) SendTyping(roomID uuid.UUID, isTyping bool) error {
	t.log.add("typing %s %t", roomID, isTyping)
	return nil
}

type fakeRooms struct {
	rooms []chatproto.Room
	err   error
}

func (f *fakeRooms) ListRooms(context.Context) ([]chatproto.Room, error) {
	return f.rooms, f.err
}

type fakeMessages struct {
	log      *journal
	byRoom   map[uuid.UUID][]chatproto.Message
	err      error
	gate     map[uuid.UUID]chan struct{}
	gateOnce sync.Mutex
}

func newFakeMessages(log *journal) *fakeMessages {
	return &fakeMessages{
		log:    log,
		byRoom: make(map[uuid.UUID][]chatproto.Message),
		gate:   make(map[uuid.UUID]chan struct{}),
	}
}

// hold заставляет загрузку истории комнаты ждать release
func (f *fakeMessages) hold(roomID uuid.UUID) chan struct{} {
	f.gateOnce.Lock()
	defer f.gateOnce.Unlock()
	ch := make(chan struct{})
	f.gate[roomID] = ch
	return ch
}

func (f *fakeMessages) ListMessages(ctx context.Context, roomID uuid.UUID, page, limit int) ([]chatproto.Message, error) {
	f.log.add("fetch %s", roomID)

	f.gateOnce.Lock()
	ch := f.gate[roomID]
	f.gateOnce.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return f.byRoom[roomID], nil
}

func newMessage(roomID uuid.UUID, content string) chatproto.Message {
	return chatproto.Message{
		ID:      uuid.New(),
		RoomID:  roomID,
		UserID:  uuid.New(),
		Content: content,
		Type:    "text",
	}
}
