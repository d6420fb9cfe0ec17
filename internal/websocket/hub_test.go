package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func connect(t *testing.T, h *Hub, userID uuid.UUID) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, "user")
	require.NoError(t, h.Register(c))
	require.Eventually(t, func() bool { return h.IsUserOnline(userID) }, time.Second, 5*time.Millisecond)
	return c
}

func recv(t *testing.T, c *Client) chatproto.Event {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		ev, err := chatproto.Decode(raw)
		require.NoError(t, err)
		return ev
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubPresence(t *testing.T) {
	h := startHub(t)

	alice, bob := uuid.New(), uuid.New()
	a := connect(t, h, alice)

	b1 := connect(t, h, bob)
	ev := recv(t, a)
	status, ok := ev.(*chatproto.UserStatus)
	require.True(t, ok)
	assert.True(t, status.Online)
	assert.Equal(t, bob, status.UserID)

	// Второе соединение того же пользователя не повторяет online
	b2 := connect(t, h, bob)
	assertSilent(t, a)

	h.Unregister(b1)
	assertSilent(t, a)
	assert.True(t, h.IsUserOnline(bob))

	h.Unregister(b2)
	ev = recv(t, a)
	status, ok = ev.(*chatproto.UserStatus)
	require.True(t, ok)
	assert.False(t, status.Online)
	assert.False(t, h.IsUserOnline(bob))

	_, open := <-b2.Send
	assert.False(t, open)
}

func TestHubRooms(t *testing.T) {
	h := startHub(t)

	alice, bob := uuid.New(), uuid.New()
	a := connect(t, h, alice)
	b := connect(t, h, bob)
	recv(t, a) // bob online

	roomID := uuid.New()

	h.JoinRoom(a, roomID)
	users, ok := recv(t, a).(*chatproto.RoomUsers)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{alice}, users.UserIDs)

	h.JoinRoom(b, roomID)
	for _, c := range []*Client{a, b} {
		users, ok := recv(t, c).(*chatproto.RoomUsers)
		require.True(t, ok)
		assert.ElementsMatch(t, []uuid.UUID{alice, bob}, users.UserIDs)
	}
	assert.True(t, b.IsInRoom(roomID))

	frame, err := chatproto.Encode(chatproto.EventUserTyping, &roomID, bob, chatproto.UserTypingPayload{UserID: bob, IsTyping: true})
	require.NoError(t, err)

	h.SendToRoomExcept(roomID, frame, b.ID)
	_, ok = recv(t, a).(*chatproto.UserTyping)
	assert.True(t, ok)
	assertSilent(t, b)

	h.LeaveRoom(b, roomID)
	assert.False(t, b.IsInRoom(roomID))
	users, ok = recv(t, a).(*chatproto.RoomUsers)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{alice}, users.UserIDs)
	assert.Equal(t, []uuid.UUID{alice}, h.GetRoomUsers(roomID))
}

func TestHubSendToUser(t *testing.T) {
	h := startHub(t)

	alice := uuid.New()
	a1 := connect(t, h, alice)
	a2 := connect(t, h, alice)

	frame, err := chatproto.Encode(chatproto.EventTaskReminder, nil, alice, chatproto.TaskReminderPayload{TaskID: uuid.New(), Title: "Deploy"})
	require.NoError(t, err)

	h.SendToUser(alice, frame)

	for _, c := range []*Client{a1, a2} {
		rem, ok := recv(t, c).(*chatproto.TaskReminder)
		require.True(t, ok)
		assert.Equal(t, "Deploy", rem.Title)
	}

	// Неизвестный пользователь не приводит к ошибке
	h.SendToUser(uuid.New(), frame)
}

func TestHubStop(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := connect(t, h, uuid.New())
	h.Stop()

	_, open := <-c.Send
	assert.False(t, open)
	assert.ErrorIs(t, h.Register(NewClient(h, nil, uuid.New(), "late")), ErrHubStopped)
	assert.ErrorIs(t, c.SendEvent(chatproto.EventPing, nil, uuid.Nil, nil), ErrClientQueueFull)
}
