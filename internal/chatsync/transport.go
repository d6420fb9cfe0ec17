// Package chatsync держит клиентское состояние чата: список комнат
// пользователя и поток сообщений открытой комнаты, синхронизируя их с
// событиями, приходящими через Transport.
package chatsync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

type Handler func(chatproto.Event)

type SubscriptionID uint64

// Transport канал реального времени. Все вызовы fire-and-forget:
// подтверждения не ждём, порядок доставки определяет сервер.
type Transport interface {
	JoinRoom(roomID uuid.UUID) error
	LeaveRoom(roomID uuid.UUID) error
	SendMessage(roomID uuid.UUID, text, clientID string) error
	SendTyping(roomID uuid.UUID, isTyping bool) error
	Subscribe(event chatproto.EventName, h Handler) SubscriptionID
	Unsubscribe(event chatproto.EventName, id SubscriptionID)
}

type RoomFetcher interface {
	ListRooms(ctx context.Context) ([]chatproto.Room, error)
}

type MessageFetcher interface {
	ListMessages(ctx context.Context, roomID uuid.UUID, page, limit int) ([]chatproto.Message, error)
}

// Registry хранит подписчиков по имени события. Реализации Transport
// используют его для раздачи событий.
type Registry struct {
	mu       sync.RWMutex
	nextID   SubscriptionID
	handlers map[chatproto.EventName]map[SubscriptionID]Handler
	order    map[chatproto.EventName][]SubscriptionID
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[chatproto.EventName]map[SubscriptionID]Handler),
		order:    make(map[chatproto.EventName][]SubscriptionID),
	}
}

func (r *Registry) Subscribe(event chatproto.EventName, h Handler) SubscriptionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID

	if _, ok := r.handlers[event]; !ok {
		r.handlers[event] = make(map[SubscriptionID]Handler)
	}
	r.handlers[event][id] = h
	r.order[event] = append(r.order[event], id)

	return id
}

func (r *Registry) Unsubscribe(event chatproto.EventName, id SubscriptionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[event][id]; !ok {
		return
	}
	delete(r.handlers[event], id)

	ids := r.order[event]
	for i, v := range ids {
		if v == id {
			r.order[event] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

// Dispatch вызывает подписчиков в порядке подписки. Обработчики
// вызываются без удержания блокировки, так что могут отписываться.
func (r *Registry) Dispatch(ev chatproto.Event) {
	r.mu.RLock()
	ids := r.order[ev.Name()]
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, r.handlers[ev.Name()][id])
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func (r *Registry) Count(event chatproto.EventName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order[event])
}

type subscription struct {
	event chatproto.EventName
	id    SubscriptionID
}

type subscriptions []subscription

func (s *subscriptions) add(t Transport, event chatproto.EventName, h Handler) {
	*s = append(*s, subscription{event: event, id: t.Subscribe(event, h)})
}

func (s *subscriptions) drop(t Transport) {
	for _, sub := range *s {
		t.Unsubscribe(sub.event, sub.id)
	}
	*s = nil
}
