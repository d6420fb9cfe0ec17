package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/taskboard-chat/internal/models"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

type fakeDB struct {
	users    map[uuid.UUID]*models.User
	members  map[uuid.UUID][]uuid.UUID
	messages map[uuid.UUID]*models.Message
	saveErr  error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    make(map[uuid.UUID]*models.User),
		members:  make(map[uuid.UUID][]uuid.UUID),
		messages: make(map[uuid.UUID]*models.Message),
	}
}

func (f *fakeDB) GetUser(id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (f *fakeDB) IsMember(userID, roomID uuid.UUID) (bool, error) {
	for _, id := range f.members[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) RoomMemberIDs(roomID uuid.UUID) ([]uuid.UUID, error) {
	return f.members[roomID], nil
}

func (f *fakeDB) SaveMessage(m *models.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	m.ID = uuid.New()
	f.messages[m.ID] = m
	return nil
}

func (f *fakeDB) GetMessage(id uuid.UUID) (*models.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	full := *m
	if u, ok := f.users[m.UserID]; ok {
		full.User = *u
	}
	return &full, nil
}

type sent struct {
	userID  uuid.UUID
	roomID  uuid.UUID
	exclude uuid.UUID
	event   chatproto.Event
}

type fakeHub struct {
	mu   sync.Mutex
	sent []sent
}

func (h *fakeHub) SendToUser(userID uuid.UUID, message []byte) {
	h.record(sent{userID: userID}, message)
}

func (h *fakeHub) SendToRoomExcept(roomID uuid.UUID, message []byte, excludeID uuid.UUID) {
	h.record(sent{roomID: roomID, exclude: excludeID}, message)
}

func (h *fakeHub) record(s sent, message []byte) {
	ev, err := chatproto.Decode(message)
	if err != nil {
		panic(err)
	}
	s.event = ev

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, s)
}

func setup() (*ChatService, *fakeDB, *fakeHub, uuid.UUID, uuid.UUID, uuid.UUID) {
	db := newFakeDB()
	hub := &fakeHub{}

	alice := &models.User{ID: uuid.New(), Username: "alice", DisplayName: "Alice"}
	bob := &models.User{ID: uuid.New(), Username: "bob"}
	db.users[alice.ID] = alice
	db.users[bob.ID] = bob

	roomID := uuid.New()
	db.members[roomID] = []uuid.UUID{alice.ID, bob.ID}

	svc := NewChatService(db, hub)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	return svc, db, hub, alice.ID, bob.ID, roomID
}

func TestSendMessageFansOutToMembers(t *testing.T) {
	svc, _, hub, alice, bob, roomID := setup()

	msg, err := svc.SendMessage(SendMessageInput{
		UserID:   alice,
		RoomID:   roomID,
		Content:  "  hello  ",
		ClientID: "c-1",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "c-1", msg.ClientID)
	assert.Equal(t, "Alice", msg.User.Name())

	require.Len(t, hub.sent, 2)
	got := []uuid.UUID{hub.sent[0].userID, hub.sent[1].userID}
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, got)

	nm, ok := hub.sent[0].event.(*chatproto.NewMessage)
	require.True(t, ok)
	assert.Equal(t, msg.ID, nm.Message.ID)
	assert.Equal(t, "c-1", nm.Message.ClientID)
	assert.Equal(t, roomID, nm.Message.RoomID)
}

func TestSendMessageRejects(t *testing.T) {
	svc, db, hub, alice, _, roomID := setup()

	tests := []struct {
		name string
		in   SendMessageInput
		want error
	}{
		{name: "blank", in: SendMessageInput{UserID: alice, RoomID: roomID, Content: " \n\t "}, want: ErrEmptyContent},
		{name: "too long", in: SendMessageInput{UserID: alice, RoomID: roomID, Content: strings.Repeat("a", maxContentLength+1)}, want: ErrContentTooLong},
		{name: "bad type", in: SendMessageInput{UserID: alice, RoomID: roomID, Content: "x", Type: "video"}, want: ErrUnsupportedType},
		{name: "not a member", in: SendMessageInput{UserID: uuid.New(), RoomID: roomID, Content: "x"}, want: ErrNotMember},
		{name: "unknown room", in: SendMessageInput{UserID: alice, RoomID: uuid.New(), Content: "x"}, want: ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, db.messages)
	assert.Empty(t, hub.sent)

	t.Run("save failure", func(t *testing.T) {
		db.saveErr = errors.New("disk full")
		_, err := svc.SendMessage(SendMessageInput{UserID: alice, RoomID: roomID, Content: "x"})
		assert.ErrorIs(t, err, db.saveErr)
		assert.Empty(t, hub.sent)
	})
}

func TestTypingExcludesSender(t *testing.T) {
	svc, _, hub, alice, _, roomID := setup()
	clientID := uuid.New()

	require.NoError(t, svc.Typing(TypingInput{
		UserID:   alice,
		UserName: "Alice",
		RoomID:   roomID,
		IsTyping: true,
		ClientID: clientID,
	}))

	require.Len(t, hub.sent, 1)
	assert.Equal(t, roomID, hub.sent[0].roomID)
	assert.Equal(t, clientID, hub.sent[0].exclude)

	typing, ok := hub.sent[0].event.(*chatproto.UserTyping)
	require.True(t, ok)
	assert.Equal(t, alice, typing.UserID)
	assert.Equal(t, "Alice", typing.UserName)
	assert.True(t, typing.IsTyping)
}

func TestRoomFromModel(t *testing.T) {
	projectID := uuid.New()
	alice := models.User{ID: uuid.New(), Username: "alice"}
	bob := models.User{ID: uuid.New(), Username: "bob"}

	r := &models.Room{
		ID:        uuid.New(),
		Name:      "Team",
		Type:      models.RoomTypeGroup,
		ProjectID: &projectID,
		Project:   &models.Project{ID: projectID, Name: "Website"},
		Members:   []models.User{alice, bob},
	}
	last := &models.Message{ID: uuid.New(), RoomID: r.ID, UserID: bob.ID, Content: "hi"}

	room := RoomFromModel(r, last, func(u *models.User) bool { return u.ID == bob.ID })

	assert.Equal(t, chatproto.RoomGroup, room.Type)
	require.NotNil(t, room.Project)
	assert.Equal(t, "Website", room.Project.Name)
	require.Len(t, room.Members, 2)
	assert.False(t, room.Members[0].IsOnline)
	assert.True(t, room.Members[1].IsOnline)
	require.NotNil(t, room.LastMessage)
	assert.Equal(t, "hi", room.LastMessage.Content)

	empty := RoomFromModel(&models.Room{ID: uuid.New(), Type: models.RoomTypeDirect}, nil, nil)
	assert.Nil(t, empty.LastMessage)
	assert.NotNil(t, empty.Members)
}
