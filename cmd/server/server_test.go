package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thereayou/taskboard-chat/internal/apiclient"
	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/internal/config"
	"github.com/thereayou/taskboard-chat/internal/database"
	"github.com/thereayou/taskboard-chat/internal/notifications"
	"github.com/thereayou/taskboard-chat/internal/wsclient"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const waitFor = 2 * time.Second

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db := &database.Database{}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	err := db.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	cfg := &config.Server{
		JWTSecret:        "secret",
		TokenTTL:         time.Hour,
		ReminderInterval: time.Hour,
		ReminderLead:     time.Hour,
	}

	srv := NewServer(cfg, db, rdb)
	go srv.Hub.Run()

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(func() {
		srv.Hub.Stop()
		ts.Close()
		rdb.Close()
	})

	return &testEnv{srv: srv, ts: ts}
}

func (e *testEnv) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

type session struct {
	token string
	user  chatproto.Member
	api   *apiclient.Client
	ws    *wsclient.Client
}

func (e *testEnv) signUp(t *testing.T, username, displayName string) *session {
	t.Helper()

	status, env := e.call(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username":     username,
		"display_name": displayName,
		"email":        username + "@example.com",
		"password":     "password123",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	s := &session{}
	s.api = apiclient.New(e.ts.URL, func() string { return s.token })

	res, err := s.api.Login(context.Background(), username+"@example.com", "password123")
	require.NoError(t, err)
	s.token = res.Token
	s.user = res.User
	return s
}

func (e *testEnv) connect(t *testing.T, s *session) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"

	ws, err := wsclient.Dial(ctx, wsURL, s.token)
	require.NoError(t, err)
	s.ws = ws

	done := make(chan struct{})
	go func() {
		ws.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return e.srv.Hub.IsUserOnline(s.user.ID) }, waitFor, 10*time.Millisecond)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp(t, "alice", "Alice")

	me, err := alice.api.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice.user.ID, me.ID)
	assert.Equal(t, "Alice", me.Name())

	t.Run("duplicate registration", func(t *testing.T) {
		status, env := e.call(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.False(t, env.Success)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := alice.api.Login(context.Background(), "alice@example.com", "nope-nope")
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	})

	t.Run("logout revokes token", func(t *testing.T) {
		status, _ := e.call(t, http.MethodPost, "/auth/logout", alice.token, nil)
		require.Equal(t, http.StatusOK, status)

		status, env := e.call(t, http.MethodGet, "/users/me", alice.token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "token is blacklisted", env.Error)
	})
}

func TestRoomEndpoints(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp(t, "alice", "Alice")
	bob := e.signUp(t, "bob", "")
	carol := e.signUp(t, "carol", "")

	status, env := e.call(t, http.MethodPost, "/projects", alice.token, map[string]string{"name": "Website"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var project struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))

	status, env = e.call(t, http.MethodPost, "/chat/rooms", alice.token, map[string]interface{}{
		"name":       "Frontend",
		"project_id": project.ID,
		"member_ids": []uuid.UUID{bob.user.ID},
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var group chatproto.Room
	require.NoError(t, json.Unmarshal(env.Data, &group))
	assert.Equal(t, chatproto.RoomGroup, group.Type)
	assert.Len(t, group.Members, 2)

	status, env = e.call(t, http.MethodPost, "/chat/rooms/direct", bob.token, map[string]interface{}{"user_id": alice.user.ID})
	require.Equal(t, http.StatusOK, status, env.Error)
	var direct chatproto.Room
	require.NoError(t, json.Unmarshal(env.Data, &direct))

	// Сообщение в direct комнате делает её самой свежей
	_, err := bob.api.PostMessage(context.Background(), direct.ID, "ping")
	require.NoError(t, err)

	rooms, err := alice.api.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, direct.ID, rooms[0].ID)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "ping", rooms[0].LastMessage.Content)
	assert.Equal(t, group.ID, rooms[1].ID)
	require.NotNil(t, rooms[1].Project)
	assert.Equal(t, "Website", rooms[1].Project.Name)

	t.Run("directory over REST", func(t *testing.T) {
		dir := chatsync.NewDirectory(alice.api, alice.user.ID)
		require.NoError(t, dir.Load(context.Background(), nil))

		list := dir.Rooms()
		require.Len(t, list, 2)
		assert.Equal(t, "bob", list[0].DisplayName)
		assert.Equal(t, "Frontend · Website", list[1].DisplayName)

		require.NoError(t, dir.Load(context.Background(), &project.ID))
		assert.Len(t, dir.Rooms(), 1)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		_, err := carol.api.ListMessages(context.Background(), group.ID, 1, 50)
		var apiErr *apiclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)

		status, _ := e.call(t, http.MethodGet, "/chat/rooms/"+group.ID.String()+"/members", carol.token, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown room", func(t *testing.T) {
		status, _ := e.call(t, http.MethodGet, "/chat/rooms/"+uuid.NewString()+"/messages", alice.token, nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = e.call(t, http.MethodGet, "/chat/rooms/not-a-uuid/messages", alice.token, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("blank message", func(t *testing.T) {
		status, _ := e.call(t, http.MethodPost, "/chat/rooms/"+group.ID.String()+"/messages", alice.token, map[string]string{"content": "   "})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("history pages", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := alice.api.PostMessage(context.Background(), group.ID, fmt.Sprintf("m%d", i))
			require.NoError(t, err)
			// Разные created_at для стабильного порядка
			time.Sleep(5 * time.Millisecond)
		}

		page, err := bob.api.ListMessages(context.Background(), group.ID, 1, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "m1", page[0].Content)
		assert.Equal(t, "m2", page[1].Content)
		assert.Equal(t, "Alice", page[1].User.Name())

		page, err = bob.api.ListMessages(context.Background(), group.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "m0", page[0].Content)
	})
}

func TestLiveChat(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp(t, "alice", "Alice")
	bob := e.signUp(t, "bob", "Bob")

	status, env := e.call(t, http.MethodPost, "/chat/rooms/direct", alice.token, map[string]interface{}{"user_id": bob.user.ID})
	require.Equal(t, http.StatusOK, status, env.Error)
	var room chatproto.Room
	require.NoError(t, json.Unmarshal(env.Data, &room))

	e.connect(t, alice)
	e.connect(t, bob)

	// У bob комната в списке, но не открыта
	bobDir := chatsync.NewDirectory(bob.api, bob.user.ID)
	require.NoError(t, bobDir.Load(context.Background(), nil))
	bobDir.Attach(bob.ws)
	defer bobDir.Detach()

	list := bobDir.Rooms()
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].DisplayName)
	assert.True(t, list[0].Online)

	aliceStream := chatsync.NewStream(alice.ws, alice.api, alice.user, chatsync.WithTypingIdle(300*time.Millisecond))
	defer aliceStream.Close()
	require.NoError(t, aliceStream.Open(context.Background(), &room))
	assert.True(t, aliceStream.Empty())

	require.NoError(t, aliceStream.Send("hello bob"))

	// Эхо сервера заменяет локальное сообщение
	require.Eventually(t, func() bool {
		msgs := aliceStream.Messages()
		return len(msgs) == 1 && !msgs[0].Pending()
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, "hello bob", aliceStream.Messages()[0].Content)

	require.Eventually(t, func() bool {
		r, ok := bobDir.Get(room.ID)
		return ok && r.UnreadCount == 1 && r.LastMessage != nil && r.LastMessage.Content == "hello bob"
	}, waitFor, 10*time.Millisecond)

	history, err := bob.api.ListMessages(context.Background(), room.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)

	t.Run("typing reaches the other side only", func(t *testing.T) {
		selected, ok := bobDir.Select(room.ID)
		require.True(t, ok)
		assert.Zero(t, selected.UnreadCount)

		bobStream := chatsync.NewStream(bob.ws, bob.api, bob.user)
		defer bobStream.Close()
		require.NoError(t, bobStream.Open(context.Background(), &room))
		require.Len(t, bobStream.Messages(), 1)

		require.Eventually(t, func() bool {
			return len(e.srv.Hub.GetRoomUsers(room.ID)) == 2
		}, waitFor, 10*time.Millisecond)

		aliceStream.ComposeChange("are you th")

		require.Eventually(t, func() bool {
			return strings.Contains(bobStream.TypingIndicator(), "Alice")
		}, waitFor, 10*time.Millisecond)
		assert.Empty(t, aliceStream.TypingIndicator())

		// После паузы typing=false снимает индикатор
		require.Eventually(t, func() bool {
			return bobStream.TypingIndicator() == ""
		}, waitFor, 10*time.Millisecond)
	})

	t.Run("presence", func(t *testing.T) {
		alice.ws.Close()

		require.Eventually(t, func() bool {
			r, ok := bobDir.Get(room.ID)
			return ok && !r.Online
		}, waitFor, 10*time.Millisecond)
	})
}

func TestTaskReminders(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signUp(t, "alice", "Alice")
	bob := e.signUp(t, "bob", "Bob")

	status, env := e.call(t, http.MethodPost, "/projects", alice.token, map[string]string{"name": "Website"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var project struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &project))

	due := time.Now().Add(10 * time.Minute).UTC()
	status, env = e.call(t, http.MethodPost, "/projects/"+project.ID.String()+"/tasks", alice.token, map[string]interface{}{
		"title":       "Deploy",
		"assignee_id": bob.user.ID,
		"due_at":      due,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	e.connect(t, bob)

	inbox := notifications.NewInbox(notifications.NewMemoryStore(), bob.user.ID)
	inbox.Attach(bob.ws)
	defer inbox.Detach()

	sent, err := e.srv.Reminders.Tick()
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Eventually(t, func() bool {
		n, err := inbox.Unread(context.Background())
		return err == nil && n == 1
	}, waitFor, 10*time.Millisecond)

	items, err := inbox.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Deploy", items[0].Title)

	// Повторно не напоминает
	sent, err = e.srv.Reminders.Tick()
	require.NoError(t, err)
	assert.Zero(t, sent)
}
