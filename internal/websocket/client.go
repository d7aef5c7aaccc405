package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dom/chess-web/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is one live connection, bound to exactly one (game, color) for its
// lifetime. Reconnection produces a fresh Client bound to the same seat.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	session *GameSession

	gameID        uuid.UUID
	userID        uuid.UUID
	color         domain.Color
	sessionExpiry time.Time

	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, gameID, userID uuid.UUID, color domain.Color, sessionExpiry time.Time) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		gameID:        gameID,
		userID:        userID,
		color:         color,
		sessionExpiry: sessionExpiry,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		// An expired session makes the connection unauthenticated; unbind
		// rather than accept further input.
		if time.Now().After(c.sessionExpiry) {
			c.sendError(ErrCodeSessionInvalid, "session expired, please log in again")
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(ErrCodeInvalidMessage, "malformed message")
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Inbound) {
	session := c.session
	if session == nil {
		c.sendError(ErrCodeGameNotActive, "connection is not attached to a game")
		return
	}

	switch msg.Type {
	case MessageTypeMove:
		session.move <- &moveRequest{client: c, move: msg.Move}
	case MessageTypeResign:
		session.resign <- c
	default:
		c.sendError(ErrCodeInvalidMessage, "unknown message type")
	}
}

// deliver queues an already-encoded event. It reports false when the client
// is closed or too slow to keep up, which callers treat as a dead
// connection. A request from this client may still be queued on the session
// after it has been pruned, so delivery must stay safe after Close.
func (c *Client) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(code, message string) {
	c.deliver(marshal(&ErrorMessage{Type: MessageTypeError, Code: code, Message: message}))
}

// Close releases the send channel exactly once and marks the client so
// later deliveries fall through instead of hitting the closed channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
