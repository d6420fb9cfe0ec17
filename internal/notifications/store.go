// Package notifications хранит уведомления пользователя (напоминания о
// задачах) за интерфейсом Store, чтобы хранилище можно было заменить.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SchemaVersion версия формата сохранённого списка
const SchemaVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported notification schema version")

const KindTaskReminder = "task_reminder"

type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TaskID    uuid.UUID `json:"task_id"`
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type Store interface {
	Get(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	Put(ctx context.Context, userID uuid.UUID, list []Notification) error
}

type document struct {
	Version int            `json:"version"`
	Items   []Notification `json:"items"`
}

func encode(list []Notification) ([]byte, error) {
	if list == nil {
		list = []Notification{}
	}
	return json.Marshal(document{Version: SchemaVersion, Items: list})
}

func decode(raw []byte) ([]Notification, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc.Items, nil
}

// RedisStore один JSON-документ на пользователя
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "notifications:"}
}

func (s *RedisStore) key(userID uuid.UUID) string {
	return s.prefix + userID.String()
}

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Notification{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *RedisStore) Put(ctx context.Context, userID uuid.UUID, list []Notification) error {
	raw, err := encode(list)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(userID), raw, 0).Err()
}

// MemoryStore хранит закодированные документы, как и RedisStore
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID) ([]Notification, error) {
	s.mu.RLock()
	raw, ok := s.docs[userID]
	s.mu.RUnlock()

	if !ok {
		return []Notification{}, nil
	}
	return decode(raw)
}

func (s *MemoryStore) Put(_ context.Context, userID uuid.UUID, list []Notification) error {
	raw, err := encode(list)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[userID] = raw
	s.mu.Unlock()
	return nil
}
