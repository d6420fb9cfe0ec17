package notifications

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const (
	DefaultLimit = 50
	storeTimeout = 5 * time.Second
)

// Inbox складывает напоминания о задачах, пришедшие по сокету, в Store
type Inbox struct {
	store  Store
	userID uuid.UUID
	limit  int

	mu        sync.Mutex
	transport chatsync.Transport
	sub       chatsync.SubscriptionID
}

func NewInbox(store Store, userID uuid.UUID) *Inbox {
	return &Inbox{store: store, userID: userID, limit: DefaultLimit}
}

func (i *Inbox) Attach(t chatsync.Transport) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.transport != nil {
		i.transport.Unsubscribe(chatproto.EventTaskReminder, i.sub)
	}
	i.transport = t
	i.sub = t.Subscribe(chatproto.EventTaskReminder, i.HandleEvent)
}

func (i *Inbox) Detach() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.transport != nil {
		i.transport.Unsubscribe(chatproto.EventTaskReminder, i.sub)
		i.transport = nil
	}
}

func (i *Inbox) HandleEvent(ev chatproto.Event) {
	r, ok := ev.(*chatproto.TaskReminder)
	if !ok {
		return
	}

	created := r.SentAt
	if created.IsZero() {
		created = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	err := i.Add(ctx, Notification{
		ID:        uuid.NewString(),
		Kind:      KindTaskReminder,
		TaskID:    r.TaskID,
		ProjectID: r.ProjectID,
		Title:     r.Title,
		DueAt:     r.DueAt,
		CreatedAt: created,
	})
	if err != nil {
		log.Printf("Failed to store reminder for task %s: %v", r.TaskID, err)
	}
}

// Add кладёт уведомление в начало списка. Повторное напоминание о той же
// задаче заменяет старое.
func (i *Inbox) Add(ctx context.Context, n Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	list, err := i.store.Get(ctx, i.userID)
	if err != nil {
		return err
	}

	out := make([]Notification, 0, len(list)+1)
	out = append(out, n)
	for _, existing := range list {
		if n.Kind == KindTaskReminder && existing.Kind == KindTaskReminder && existing.TaskID == n.TaskID {
			continue
		}
		out = append(out, existing)
	}
	if len(out) > i.limit {
		out = out[:i.limit]
	}

	return i.store.Put(ctx, i.userID, out)
}

func (i *Inbox) List(ctx context.Context) ([]Notification, error) {
	return i.store.Get(ctx, i.userID)
}

func (i *Inbox) Unread(ctx context.Context) (int, error) {
	list, err := i.store.Get(ctx, i.userID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead пустой id отмечает прочитанными все уведомления
func (i *Inbox) MarkRead(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	list, err := i.store.Get(ctx, i.userID)
	if err != nil {
		return err
	}

	for k := range list {
		if id == "" || list[k].ID == id {
			list[k].Read = true
		}
	}
	return i.store.Put(ctx, i.userID, list)
}
