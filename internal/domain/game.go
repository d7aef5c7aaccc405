package domain

import (
	"time"

	"github.com/google/uuid"
)

// StartFEN is the canonical encoding of the initial chess position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type Color string

const (
	ColorWhite Color = "white"
	ColorBlack Color = "black"
)

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

func (c Color) Valid() bool {
	return c == ColorWhite || c == ColorBlack
}

type GameStatus string

const (
	GameStatusWaiting   GameStatus = "waiting"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

type GameResult string

const (
	ResultCheckmate GameResult = "checkmate"
	ResultStalemate GameResult = "stalemate"
	ResultDraw      GameResult = "draw"
	ResultResigned  GameResult = "resigned"
)

type Game struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedBy    uuid.UUID  `json:"createdBy" gorm:"type:uuid;not null"`
	CreatorColor Color      `json:"creatorColor" gorm:"not null"`
	Status       GameStatus `json:"status" gorm:"not null;default:'waiting'"`
	CurrentFEN   string     `json:"currentFen" gorm:"not null"`
	CurrentTurn  Color      `json:"currentTurn" gorm:"not null;default:'white'"`
	MoveCount    int        `json:"moveCount" gorm:"not null;default:0"`
	Result       GameResult `json:"result,omitempty"`
	WinnerID     *uuid.UUID `json:"winnerId" gorm:"type:uuid"`
	WhiteUserID  *uuid.UUID `json:"whiteUserId" gorm:"type:uuid"`
	BlackUserID  *uuid.UUID `json:"blackUserId" gorm:"type:uuid"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt"`

	// Relations
	Creator *User         `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Players []*GamePlayer `json:"players,omitempty" gorm:"foreignKey:GameID"`
}

// SeatFor returns the user id occupying the given color, or nil.
func (g *Game) SeatFor(color Color) *uuid.UUID {
	if color == ColorWhite {
		return g.WhiteUserID
	}
	return g.BlackUserID
}

// ColorOf returns the color held by userID, if seated.
func (g *Game) ColorOf(userID uuid.UUID) (Color, bool) {
	if g.WhiteUserID != nil && *g.WhiteUserID == userID {
		return ColorWhite, true
	}
	if g.BlackUserID != nil && *g.BlackUserID == userID {
		return ColorBlack, true
	}
	return "", false
}

// Outcome renders the terminal result in the wire form: checkmate(white),
// stalemate, draw, resigned(black). Empty while the game is ongoing.
func (g *Game) Outcome() string {
	switch g.Result {
	case ResultCheckmate:
		if g.WinnerID != nil && g.WhiteUserID != nil && *g.WinnerID == *g.WhiteUserID {
			return "checkmate(white)"
		}
		return "checkmate(black)"
	case ResultResigned:
		if g.WinnerID != nil && g.WhiteUserID != nil && *g.WinnerID == *g.WhiteUserID {
			return "resigned(black)"
		}
		return "resigned(white)"
	case ResultStalemate, ResultDraw:
		return string(g.Result)
	}
	return ""
}

// GamePlayer binds one user to one color within one game. Seats are created
// once and never reassigned.
type GamePlayer struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GameID   uuid.UUID `json:"gameId" gorm:"type:uuid;not null;index;uniqueIndex:idx_game_color,priority:1"`
	UserID   uuid.UUID `json:"userId" gorm:"type:uuid;not null"`
	Color    Color     `json:"color" gorm:"not null;uniqueIndex:idx_game_color,priority:2"`
	JoinedAt time.Time `json:"joinedAt"`

	// Relations
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// GameMove is one append-only entry in a game's move log. MoveNumber is
// contiguous from 1 per game; FENAfter is the position produced by this move.
type GameMove struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GameID      uuid.UUID `json:"gameId" gorm:"type:uuid;not null;uniqueIndex:idx_game_move_number,priority:1"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null"`
	MoveNumber  int       `json:"moveNumber" gorm:"not null;uniqueIndex:idx_game_move_number,priority:2"`
	MoveUCI     string    `json:"moveUci" gorm:"not null"`
	MoveSAN     string    `json:"moveSan" gorm:"not null"`
	FENAfter    string    `json:"fenAfter" gorm:"not null"`
	Color       Color     `json:"color" gorm:"not null"`
	IsCheck     bool      `json:"isCheck" gorm:"not null;default:false"`
	IsCheckmate bool      `json:"isCheckmate" gorm:"not null;default:false"`
	IsStalemate bool      `json:"isStalemate" gorm:"not null;default:false"`
	IsDraw      bool      `json:"isDraw" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
}
