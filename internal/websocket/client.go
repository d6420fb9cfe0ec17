package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB

	sendQueueSize = 256
)

// FrameHandler обрабатывает кадры клиента, кроме служебных
type FrameHandler interface {
	HandleFrame(client *Client, frame *chatproto.Frame) error
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	UserName string
	Conn     *websocket.Conn
	Send     chan []byte
	Rooms    map[uuid.UUID]bool
	Hub      *Hub
	mu       sync.RWMutex

	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, userName string) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		UserName: userName,
		Conn:     conn,
		Send:     make(chan []byte, sendQueueSize),
		Rooms:    make(map[uuid.UUID]bool),
		Hub:      hub,
	}
}

// ReadPump читает кадры от клиента
func (c *Client) ReadPump(handler FrameHandler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var frame chatproto.Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			c.SendError(ErrInvalidMessage.Error())
			continue
		}

		// Отправителем всегда считается владелец соединения
		frame.UserID = c.UserID

		if frame.Event == chatproto.EventPong {
			c.Conn.SetReadDeadline(time.Now().Add(pongWait))
			continue
		}

		if handler == nil {
			continue
		}
		if err := handler.HandleFrame(c, &frame); err != nil {
			log.Printf("Error handling %s from %s: %v", frame.Event, c.UserID, err)
			c.SendError(err.Error())
		}
	}
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Каждый кадр отдельным сообщением
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent кладёт кадр в очередь клиента
func (c *Client) SendEvent(event chatproto.EventName, roomID *uuid.UUID, userID uuid.UUID, data interface{}) error {
	msg, err := chatproto.Encode(event, roomID, userID, data)
	if err != nil {
		return err
	}
	if !c.enqueue(msg) {
		return ErrClientQueueFull
	}
	return nil
}

func (c *Client) SendError(errorMsg string) {
	c.SendEvent(chatproto.EventError, nil, c.UserID, chatproto.ErrorPayload{Error: errorMsg})
}

func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- msg:
		return true
	default:
		log.Printf("Client %s send channel full", c.ID)
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) IsInRoom(roomID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Rooms[roomID]
}

func (c *Client) GetRooms() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]uuid.UUID, 0, len(c.Rooms))
	for roomID := range c.Rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}
