package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/dom/chess-web/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByUserID(ctx context.Context, userID uuid.UUID) error
}

type GameRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error)
	Update(ctx context.Context, game *domain.Game) error
	// AppendMove persists move and the updated game row (position, turn,
	// move count, and terminal fields when the move ends the game) in one
	// transaction. A reader never observes one without the other.
	AppendMove(ctx context.Context, game *domain.Game, move *domain.GameMove) error
	// ClaimSeat persists the seat row and the game row it implies (seat
	// denormalization, status) in one transaction. Losing a race for the
	// color returns domain.ErrColorUnavailable with the game untouched.
	ClaimSeat(ctx context.Context, game *domain.Game, seat *domain.GamePlayer) error
}

type GamePlayerRepository interface {
	Create(ctx context.Context, player *domain.GamePlayer) error
	GetByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.GamePlayer, error)
	GetByGameAndUser(ctx context.Context, gameID, userID uuid.UUID) (*domain.GamePlayer, error)
}

type GameMoveRepository interface {
	GetByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.GameMove, error)
}

type Repositories struct {
	User       UserRepository
	Session    SessionRepository
	Game       GameRepository
	GamePlayer GamePlayerRepository
	GameMove   GameMoveRepository
}
