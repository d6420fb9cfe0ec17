package chatsync

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypingSet кто сейчас набирает сообщение в открытой комнате. Запись
// живёт от события is_typing=true до is_typing=false или до истечения ttl.
type TypingSet struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	order   []uuid.UUID
	entries map[uuid.UUID]typist
}

type typist struct {
	name    string
	expires time.Time
}

func NewTypingSet(ttl time.Duration, now func() time.Time) *TypingSet {
	if now == nil {
		now = time.Now
	}
	return &TypingSet{ttl: ttl, now: now, entries: make(map[uuid.UUID]typist)}
}

func (s *TypingSet) Set(userID uuid.UUID, name string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !typing {
		s.remove(userID)
		return
	}

	if _, ok := s.entries[userID]; !ok {
		s.order = append(s.order, userID)
	}
	s.entries[userID] = typist{name: name, expires: s.now().Add(s.ttl)}
}

// Names имена в порядке начала набора, просроченные записи выбрасываются
func (s *TypingSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	names := make([]string, 0, len(s.order))
	for _, id := range append([]uuid.UUID(nil), s.order...) {
		e := s.entries[id]
		if !now.Before(e.expires) {
			s.remove(id)
			continue
		}
		names = append(names, e.name)
	}
	return names
}

func (s *TypingSet) Reset() {
	s.mu.Lock()
	s.order = nil
	s.entries = make(map[uuid.UUID]typist)
	s.mu.Unlock()
}

func (s *TypingSet) remove(userID uuid.UUID) {
	if _, ok := s.entries[userID]; !ok {
		return
	}
	delete(s.entries, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// TypingIndicator строка под лентой сообщений; пустая, если никто не пишет
func TypingIndicator(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s đang nhập…", names[0])
	case 2:
		return fmt.Sprintf("%s và %s đang nhập…", names[0], names[1])
	default:
		return fmt.Sprintf("%s và %d người khác đang nhập…", names[0], len(names)-1)
	}
}
