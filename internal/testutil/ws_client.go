package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/dom/chess-web/internal/websocket"
)

// rawMessage keeps the full frame so typed decoders can re-parse it
type rawMessage struct {
	Type websocket.MessageType
	Data []byte
}

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *rawMessage
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient connects to a game's WebSocket endpoint
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *rawMessage, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var head struct {
				Type websocket.MessageType `json:"type"`
			}
			if err := json.Unmarshal(data, &head); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.messages <- &rawMessage{Type: head.Type, Data: data}:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

func (c *WSClient) send(v interface{}) {
	c.t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send message: %v", err)
	}
}

// SendMove submits a move in UCI or SAN notation
func (c *WSClient) SendMove(move string) {
	c.send(map[string]string{"type": string(websocket.MessageTypeMove), "move": move})
}

// SendResign resigns the game
func (c *WSClient) SendResign() {
	c.send(map[string]string{"type": string(websocket.MessageTypeResign)})
}

// expect waits for a message of the specified type, skipping other types
func (c *WSClient) expect(msgType websocket.MessageType, timeout time.Duration) *rawMessage {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
			// Skip other message types (like presence)
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

// ExpectSync waits for and decodes a sync message
func (c *WSClient) ExpectSync(timeout time.Duration) *websocket.SyncMessage {
	c.t.Helper()

	msg := c.expect(websocket.MessageTypeSync, timeout)

	var payload websocket.SyncMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.t.Fatalf("failed to decode sync message: %v", err)
	}
	return &payload
}

// ExpectMoveApplied waits for and decodes a move_applied message
func (c *WSClient) ExpectMoveApplied(timeout time.Duration) *websocket.MoveAppliedMessage {
	c.t.Helper()

	msg := c.expect(websocket.MessageTypeMoveApplied, timeout)

	var payload websocket.MoveAppliedMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.t.Fatalf("failed to decode move_applied message: %v", err)
	}
	return &payload
}

// ExpectGameEnded waits for and decodes a game_ended message
func (c *WSClient) ExpectGameEnded(timeout time.Duration) *websocket.GameEndedMessage {
	c.t.Helper()

	msg := c.expect(websocket.MessageTypeGameEnded, timeout)

	var payload websocket.GameEndedMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.t.Fatalf("failed to decode game_ended message: %v", err)
	}
	return &payload
}

// ExpectPresence waits for and decodes a presence message
func (c *WSClient) ExpectPresence(timeout time.Duration) *websocket.PresenceMessage {
	c.t.Helper()

	msg := c.expect(websocket.MessageTypePresence, timeout)

	var payload websocket.PresenceMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.t.Fatalf("failed to decode presence message: %v", err)
	}
	return &payload
}

// ExpectError waits for and decodes an error message
func (c *WSClient) ExpectError(timeout time.Duration) *websocket.ErrorMessage {
	c.t.Helper()

	msg := c.expect(websocket.MessageTypeError, timeout)

	var payload websocket.ErrorMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		c.t.Fatalf("failed to decode error message: %v", err)
	}
	return &payload
}

// CollectTypes reads every message arriving within the window and counts
// them by type
func (c *WSClient) CollectTypes(window time.Duration) map[websocket.MessageType]int {
	counts := make(map[websocket.MessageType]int)
	deadline := time.After(window)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return counts
			}
			counts[msg.Type]++
		case <-deadline:
			return counts
		}
	}
}

// DrainMessages discards everything currently buffered
func (c *WSClient) DrainMessages() {
	for {
		select {
		case <-c.messages:
		default:
			return
		}
	}
}

// ExpectNoMessage asserts that nothing arrives within the window
func (c *WSClient) ExpectNoMessage(window time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message of type %s", msg.Type)
		}
	case <-time.After(window):
	}
}
