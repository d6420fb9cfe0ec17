package chatsync

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

// Room комната в списке с вычисленным отображаемым именем
type Room struct {
	chatproto.Room
	DisplayName   string
	CounterpartID uuid.UUID
	Online        bool
}

// Directory список комнат пользователя, отсортированный по активности
type Directory struct {
	fetcher RoomFetcher
	userID  uuid.UUID

	mu        sync.Mutex
	rooms     []*Room
	selected  uuid.UUID
	transport Transport
	subs      subscriptions
}

func NewDirectory(fetcher RoomFetcher, userID uuid.UUID) *Directory {
	return &Directory{fetcher: fetcher, userID: userID}
}

// Load заменяет список комнат целиком. Ошибка загрузки не показывается
// пользователю: список просто становится пустым.
func (d *Directory) Load(ctx context.Context, projectID *uuid.UUID) error {
	rooms, err := d.fetcher.ListRooms(ctx)
	if err != nil {
		log.Printf("Failed to load rooms: %v", err)
		d.mu.Lock()
		d.rooms = nil
		d.mu.Unlock()
		return err
	}

	list := make([]*Room, 0, len(rooms))
	for _, r := range rooms {
		if projectID != nil && (r.ProjectID == nil || *r.ProjectID != *projectID) {
			continue
		}
		list = append(list, d.newRoom(r))
	}

	d.mu.Lock()
	d.rooms = list
	d.mu.Unlock()

	return nil
}

func (d *Directory) newRoom(r chatproto.Room) *Room {
	room := &Room{Room: r}
	if room.UnreadCount < 0 {
		room.UnreadCount = 0
	}

	switch r.Type {
	case chatproto.RoomDirect:
		room.DisplayName = r.Name
		for _, m := range r.Members {
			if m.ID != d.userID {
				room.DisplayName = m.Name()
				room.CounterpartID = m.ID
				room.Online = m.IsOnline
				break
			}
		}
	default:
		room.DisplayName = r.Name
		if r.Project != nil && r.Project.Name != "" {
			room.DisplayName = r.Name + " · " + r.Project.Name
		}
	}

	return room
}

// Rooms возвращает копию списка в порядке активности
func (d *Directory) Rooms() []Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot(d.rooms)
}

func (d *Directory) snapshot(rooms []*Room) []Room {
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = *r
	}
	return out
}

func (d *Directory) Get(roomID uuid.UUID) (Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r := d.find(roomID); r != nil {
		return *r, true
	}
	return Room{}, false
}

// Select делает комнату текущей и обнуляет её счётчик непрочитанных.
// Запрос "прочитано" на сервер не отправляется.
func (d *Directory) Select(roomID uuid.UUID) (Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.find(roomID)
	if r == nil {
		return Room{}, false
	}

	d.selected = roomID
	r.UnreadCount = 0
	return *r, true
}

func (d *Directory) Deselect() {
	d.mu.Lock()
	d.selected = uuid.Nil
	d.mu.Unlock()
}

func (d *Directory) Selected() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Search фильтрует по отображаемому имени без учёта регистра.
// Порядок активности сохраняется.
func (d *Directory) Search(query string) []Room {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.snapshot(d.rooms)
	}

	out := make([]Room, 0)
	for _, r := range d.rooms {
		if strings.Contains(strings.ToLower(r.DisplayName), q) {
			out = append(out, *r)
		}
	}
	return out
}

// HandleEvent применяет событие к списку комнат
func (d *Directory) HandleEvent(ev chatproto.Event) {
	switch e := ev.(type) {
	case *chatproto.NewMessage:
		d.onMessage(e.Message)
	case *chatproto.UserStatus:
		d.onStatus(e.UserID, e.Online)
	}
}

func (d *Directory) onMessage(msg chatproto.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.index(msg.RoomID)
	if idx < 0 {
		// Неизвестные комнаты не создаём
		return
	}

	r := d.rooms[idx]
	r.LastMessage = msg.Last()
	if msg.RoomID != d.selected {
		r.UnreadCount++
	}

	copy(d.rooms[1:idx+1], d.rooms[:idx])
	d.rooms[0] = r
}

func (d *Directory) onStatus(userID uuid.UUID, online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.rooms {
		if r.Type == chatproto.RoomDirect && r.CounterpartID == userID {
			r.Online = online
		}
	}
}

// Attach подписывает список на события транспорта
func (d *Directory) Attach(t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transport != nil {
		d.subs.drop(d.transport)
	}
	d.transport = t
	d.subs.add(t, chatproto.EventNewMessage, d.HandleEvent)
	d.subs.add(t, chatproto.EventUserOnline, d.HandleEvent)
	d.subs.add(t, chatproto.EventUserOffline, d.HandleEvent)
}

func (d *Directory) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transport != nil {
		d.subs.drop(d.transport)
		d.transport = nil
	}
}

func (d *Directory) find(roomID uuid.UUID) *Room {
	if i := d.index(roomID); i >= 0 {
		return d.rooms[i]
	}
	return nil
}

func (d *Directory) index(roomID uuid.UUID) int {
	for i, r := range d.rooms {
		if r.ID == roomID {
			return i
		}
	}
	return -1
}
