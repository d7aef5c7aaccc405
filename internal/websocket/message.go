package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/chess-web/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeMove   MessageType = "move"
	MessageTypeResign MessageType = "resign"

	// Server to Client
	MessageTypeMoveApplied MessageType = "move_applied"
	MessageTypeGameEnded   MessageType = "game_ended"
	MessageTypePresence    MessageType = "presence"
	MessageTypeSync        MessageType = "sync"
	MessageTypeError       MessageType = "error"
)

// Inbound is the envelope for client messages.
type Inbound struct {
	Type MessageType `json:"type"`
	Move string      `json:"move,omitempty"`
}

type MoveAppliedMessage struct {
	Type        MessageType  `json:"type"`
	MoveUCI     string       `json:"move_uci"`
	MoveSAN     string       `json:"move_san"`
	FENAfter    string       `json:"fen_after"`
	CurrentTurn domain.Color `json:"current_turn"`
	MoverColor  domain.Color `json:"mover_color"`
}

type GameEndedMessage struct {
	Type        MessageType `json:"type"`
	Outcome     string      `json:"outcome"`
	CompletedAt time.Time   `json:"completed_at"`
}

type PresenceMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Online bool        `json:"online"`
}

// SyncMessage carries the full resumable state to a newly attached
// connection: current position plus the ordered move history.
type SyncMessage struct {
	Type        MessageType       `json:"type"`
	FEN         string            `json:"fen"`
	CurrentTurn domain.Color      `json:"current_turn"`
	Status      domain.GameStatus `json:"status"`
	MoveHistory []string          `json:"move_history"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

// Error codes carried on ErrorMessage.
const (
	ErrCodeOutOfTurn      = "out_of_turn"
	ErrCodeIllegalMove    = "illegal_move"
	ErrCodeGameFinished   = "game_finished"
	ErrCodeGameNotActive  = "game_not_active"
	ErrCodeGameNotFound   = "game_not_found"
	ErrCodePersistence    = "persistence_failure"
	ErrCodeSessionInvalid = "session_invalid"
	ErrCodeInvalidMessage = "invalid_message"
)

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
