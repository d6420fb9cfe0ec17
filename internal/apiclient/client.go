// Package apiclient обращается к REST API чат-сервера.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

var (
	_ chatsync.RoomFetcher    = (*Client)(nil)
	_ chatsync.MessageFetcher = (*Client)(nil)
)

// APIError ответ с success=false или статусом не 2xx
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// TokenSource отдаёт текущий токен доступа
type TokenSource func() string

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &bearerTransport{token: token, next: http.DefaultTransport},
		},
	}
}

// bearerTransport добавляет Authorization к каждому запросу
type bearerTransport struct {
	token TokenSource
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == nil {
		return t.next.RoundTrip(req)
	}
	tok := t.token()
	if tok == "" {
		return t.next.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+tok)
	return t.next.RoundTrip(r)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if resp.StatusCode/100 != 2 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      chatproto.Member `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*chatproto.Member, error) {
	var me chatproto.Member
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ListRooms GET /chat/rooms/user
func (c *Client) ListRooms(ctx context.Context) ([]chatproto.Room, error) {
	var rooms []chatproto.Room
	if err := c.do(ctx, http.MethodGet, "/chat/rooms/user", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

type messagesPage struct {
	Messages []chatproto.Message `json:"messages"`
	Page     int                 `json:"page"`
	Limit    int                 `json:"limit"`
	HasMore  bool                `json:"has_more"`
}

// ListMessages GET /chat/rooms/{id}/messages, старые сообщения первыми
func (c *Client) ListMessages(ctx context.Context, roomID uuid.UUID, page, limit int) ([]chatproto.Message, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var res messagesPage
	path := "/chat/rooms/" + roomID.String() + "/messages?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Messages, nil
}

// PostMessage отправка через HTTP, запасной путь к websocket
func (c *Client) PostMessage(ctx context.Context, roomID uuid.UUID, text string) (*chatproto.Message, error) {
	var msg chatproto.Message
	err := c.do(ctx, http.MethodPost, "/chat/rooms/"+roomID.String()+"/messages", map[string]string{
		"content": text,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
