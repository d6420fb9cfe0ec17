package chatsync

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
	"github.com/thereayou/taskboard-chat/pkg/debounce"
)

const (
	DefaultTypingIdle   = time.Second
	DefaultTypingTTL    = 5 * time.Second
	DefaultHistoryLimit = 50
)

var (
	ErrNoRoom = errors.New("no room is open")
	// ErrStaleLoad история пришла для комнаты, которая уже не открыта
	ErrStaleLoad = errors.New("history load superseded by another room")
)

type StreamOption func(*Stream)

func WithTypingIdle(d time.Duration) StreamOption {
	return func(s *Stream) { s.typingIdle = d }
}

func WithTypingTTL(d time.Duration) StreamOption {
	return func(s *Stream) { s.typingTTL = d }
}

func WithHistoryLimit(n int) StreamOption {
	return func(s *Stream) { s.historyLimit = n }
}

func WithClock(now func() time.Time) StreamOption {
	return func(s *Stream) { s.now = now }
}

func WithClientIDs(gen func() string) StreamOption {
	return func(s *Stream) { s.newClientID = gen }
}

// Stream лента сообщений ровно одной открытой комнаты
type Stream struct {
	transport Transport
	fetcher   MessageFetcher
	self      chatproto.Member

	typingIdle   time.Duration
	typingTTL    time.Duration
	historyLimit int
	now          func() time.Time
	newClientID  func() string

	mu         sync.Mutex
	room       *chatproto.Room
	gen        uint64
	loading    bool
	messages   []chatproto.Message
	input      string
	selfTyping bool
	typing     *TypingSet
	idle       *debounce.Debouncer
	subs       subscriptions
}

func NewStream(t Transport, f MessageFetcher, self chatproto.Member, opts ...StreamOption) *Stream {
	s := &Stream{
		transport:    t,
		fetcher:      f,
		self:         self,
		typingIdle:   DefaultTypingIdle,
		typingTTL:    DefaultTypingTTL,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		newClientID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.typing = NewTypingSet(s.typingTTL, s.now)
	s.idle = debounce.New(s.typingIdle, s.stopTyping)
	return s
}

// Open переключает ленту на комнату: покидает предыдущую, подписывается,
// входит в новую и только потом загружает историю. nil просто закрывает ленту.
func (s *Stream) Open(ctx context.Context, room *chatproto.Room) error {
	s.mu.Lock()
	s.closeLocked()

	if room == nil {
		s.mu.Unlock()
		return nil
	}

	r := *room
	s.room = &r
	s.gen++
	gen := s.gen
	s.loading = true

	s.subs.add(s.transport, chatproto.EventNewMessage, s.HandleEvent)
	s.subs.add(s.transport, chatproto.EventUserTyping, s.HandleEvent)
	if err := s.transport.JoinRoom(r.ID); err != nil {
		log.Printf("Failed to join room %s: %v", r.ID, err)
	}
	s.mu.Unlock()

	history, err := s.fetcher.ListMessages(ctx, r.ID, 1, s.historyLimit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return ErrStaleLoad
	}
	s.loading = false

	if err != nil {
		log.Printf("Failed to load messages for room %s: %v", r.ID, err)
		return err
	}

	s.messages = mergeHistory(history, s.messages)
	return nil
}

// mergeHistory история плюс то, что успело прийти вживую во время загрузки
func mergeHistory(history, live []chatproto.Message) []chatproto.Message {
	out := make([]chatproto.Message, 0, len(history)+len(live))
	out = append(out, history...)

	for _, m := range live {
		if indexOf(out, m) < 0 {
			out = append(out, m)
		}
	}
	return out
}

func indexOf(list []chatproto.Message, m chatproto.Message) int {
	for i, existing := range list {
		if m.ID != uuid.Nil && existing.ID == m.ID {
			return i
		}
		if m.ClientID != "" && existing.ClientID == m.ClientID {
			return i
		}
	}
	return -1
}

// Close покидает комнату и сбрасывает ленту. Вызывать при смене комнаты
// и при завершении работы.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Stream) closeLocked() {
	// Отложенный typing=false не должен уйти в покинутую комнату
	s.idle.Stop()
	s.selfTyping = false

	if s.room != nil {
		if err := s.transport.LeaveRoom(s.room.ID); err != nil {
			log.Printf("Failed to leave room %s: %v", s.room.ID, err)
		}
	}
	s.subs.drop(s.transport)

	s.gen++
	s.room = nil
	s.loading = false
	s.messages = nil
	s.input = ""
	s.typing.Reset()
}

// HandleEvent применяет событие транспорта к ленте
func (s *Stream) HandleEvent(ev chatproto.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == nil {
		return
	}

	switch e := ev.(type) {
	case *chatproto.NewMessage:
		if e.Message.RoomID != s.room.ID {
			return
		}
		s.appendLocked(e.Message)

	case *chatproto.UserTyping:
		if e.RoomID != s.room.ID || e.UserID == s.self.ID {
			return
		}
		s.typing.Set(e.UserID, e.UserName, e.IsTyping)
	}
}

// appendLocked подтверждение сервера заменяет локальное эхо с тем же
// client_id, повтор уже показанного сообщения игнорируется.
func (s *Stream) appendLocked(m chatproto.Message) {
	if i := indexOf(s.messages, m); i >= 0 {
		if s.messages[i].Pending() && !m.Pending() {
			s.messages[i] = m
		}
		return
	}
	s.messages = append(s.messages, m)
}

// Send показывает сообщение сразу и отправляет его через транспорт.
// Пустой после обрезки текст игнорируется без обращений к транспорту.
func (s *Stream) Send(text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == nil {
		return ErrNoRoom
	}

	msg := chatproto.Message{
		ClientID:  s.newClientID(),
		RoomID:    s.room.ID,
		UserID:    s.self.ID,
		Content:   content,
		Type:      "text",
		CreatedAt: s.now(),
		User:      s.self,
	}
	s.messages = append(s.messages, msg)

	err := s.transport.SendMessage(s.room.ID, content, msg.ClientID)

	s.idle.Stop()
	s.selfTyping = false
	if terr := s.transport.SendTyping(s.room.ID, false); terr != nil {
		log.Printf("Failed to send typing state: %v", terr)
	}

	s.input = ""
	return err
}

// ComposeChange новое содержимое поля ввода. typing=true уходит один раз
// на серию нажатий, typing=false через typingIdle тишины.
func (s *Stream) ComposeChange(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = text
	if s.room == nil || text == "" {
		return
	}

	if !s.selfTyping {
		s.selfTyping = true
		if err := s.transport.SendTyping(s.room.ID, true); err != nil {
			log.Printf("Failed to send typing state: %v", err)
		}
	}
	s.idle.Trigger()
}

// PressEnter Enter отправляет, Shift+Enter добавляет перевод строки
func (s *Stream) PressEnter(shift bool) error {
	s.mu.Lock()
	if shift {
		s.input += "\n"
		s.mu.Unlock()
		return nil
	}
	text := s.input
	s.mu.Unlock()

	return s.Send(text)
}

func (s *Stream) stopTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selfTyping || s.room == nil {
		return
	}
	s.selfTyping = false
	if err := s.transport.SendTyping(s.room.ID, false); err != nil {
		log.Printf("Failed to send typing state: %v", err)
	}
}

func (s *Stream) Room() *chatproto.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == nil {
		return nil
	}
	r := *s.room
	return &r
}

func (s *Stream) Messages() []chatproto.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chatproto.Message(nil), s.messages...)
}

func (s *Stream) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Empty true, когда комната открыта, загружена и сообщений нет
func (s *Stream) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room != nil && !s.loading && len(s.messages) == 0
}

func (s *Stream) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Stream) TypingIndicator() string {
	return TypingIndicator(s.typing.Names())
}
