// Package wsclient реализует chatsync.Transport поверх websocket-соединения
// с чат-сервером.
package wsclient

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от сервера
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024

	sendQueueSize = 256
)

var (
	ErrQueueFull = errors.New("send queue is full")
	ErrClosed    = errors.New("connection closed")
)

var _ chatsync.Transport = (*Client)(nil)

type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	registry *chatsync.Registry

	done      chan struct{}
	closeOnce sync.Once
}

// Dial подключается к серверу, токен передаётся как Bearer
func Dial(ctx context.Context, url, token string) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	return New(conn), nil
}

func New(conn *websocket.Conn) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		registry: chatsync.NewRegistry(),
		done:     make(chan struct{}),
	}
}

// Run обслуживает соединение до его закрытия или отмены ctx
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(c.readPump)
	g.Go(c.writePump)
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		c.Close()
		return nil
	})

	return g.Wait()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		// WriteControl можно вызывать параллельно с writePump
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
}

func (c *Client) readPump() error {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		ev, err := chatproto.Decode(raw)
		if err != nil {
			log.Printf("Dropping frame: %v", err)
			continue
		}

		if _, ok := ev.(*chatproto.Ping); ok {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			if err := c.enqueue(chatproto.EventPong, nil, nil); err != nil {
				log.Printf("Failed to answer ping: %v", err)
			}
		}

		c.registry.Dispatch(ev)
	}
}

func (c *Client) writePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return nil

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return err
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return err
			}
		}
	}
}

func (c *Client) enqueue(event chatproto.EventName, roomID *uuid.UUID, data interface{}) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	msg, err := chatproto.Encode(event, roomID, uuid.Nil, data)
	if err != nil {
		return err
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) JoinRoom(roomID uuid.UUID) error {
	return c.enqueue(chatproto.EventJoinRoom, &roomID, nil)
}

func (c *Client) LeaveRoom(roomID uuid.UUID) error {
	return c.enqueue(chatproto.EventLeaveRoom, &roomID, nil)
}

func (c *Client) SendMessage(roomID uuid.UUID, text, clientID string) error {
	return c.enqueue(chatproto.EventSendMessage, &roomID, chatproto.SendMessagePayload{
		Content:  text,
		Type:     "text",
		ClientID: clientID,
	})
}

func (c *Client) SendTyping(roomID uuid.UUID, isTyping bool) error {
	return c.enqueue(chatproto.EventTyping, &roomID, chatproto.TypingPayload{IsTyping: isTyping})
}

func (c *Client) Subscribe(event chatproto.EventName, h chatsync.Handler) chatsync.SubscriptionID {
	return c.registry.Subscribe(event, h)
}

func (c *Client) Unsubscribe(event chatproto.EventName, id chatsync.SubscriptionID) {
	c.registry.Unsubscribe(event, id)
}
