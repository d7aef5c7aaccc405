package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/repository"
)

type GameService struct {
	gameRepo   repository.GameRepository
	playerRepo repository.GamePlayerRepository
	moveRepo   repository.GameMoveRepository
}

func NewGameService(gameRepo repository.GameRepository, playerRepo repository.GamePlayerRepository, moveRepo repository.GameMoveRepository) *GameService {
	return &GameService{
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		moveRepo:   moveRepo,
	}
}

type CreateGameInput struct {
	CreatedBy uuid.UUID
	Color     domain.Color
}

func (s *GameService) CreateGame(ctx context.Context, input CreateGameInput) (*domain.Game, error) {
	if !input.Color.Valid() {
		return nil, domain.ErrColorUnavailable
	}

	now := time.Now()
	game := &domain.Game{
		ID:           uuid.New(),
		CreatedBy:    input.CreatedBy,
		CreatorColor: input.Color,
		Status:       domain.GameStatusWaiting,
		CurrentFEN:   domain.StartFEN,
		CurrentTurn:  domain.ColorWhite,
		CreatedAt:    now,
	}
	if input.Color == domain.ColorWhite {
		game.WhiteUserID = &input.CreatedBy
	} else {
		game.BlackUserID = &input.CreatedBy
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, err
	}

	seat := &domain.GamePlayer{
		ID:       uuid.New(),
		GameID:   game.ID,
		UserID:   input.CreatedBy,
		Color:    input.Color,
		JoinedAt: now,
	}
	if err := s.playerRepo.Create(ctx, seat); err != nil {
		return nil, err
	}

	game.Players = []*domain.GamePlayer{seat}
	return game, nil
}

// JoinGame claims the second seat. An empty colorChoice takes whatever color
// is free; a user already seated gets their existing seat back unchanged.
func (s *GameService) JoinGame(ctx context.Context, gameID, userID uuid.UUID, colorChoice domain.Color) (*domain.Game, *domain.GamePlayer, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	for _, p := range game.Players {
		if p.UserID == userID {
			return game, p, nil
		}
	}

	if game.Status == domain.GameStatusCompleted {
		return nil, nil, domain.ErrGameFinished
	}
	if game.WhiteUserID != nil && game.BlackUserID != nil {
		return nil, nil, domain.ErrSeatConflict
	}

	free := domain.ColorWhite
	if game.WhiteUserID != nil {
		free = domain.ColorBlack
	}
	if colorChoice != "" {
		if !colorChoice.Valid() || colorChoice != free {
			return nil, nil, domain.ErrColorUnavailable
		}
	}

	seat := &domain.GamePlayer{
		ID:       uuid.New(),
		GameID:   game.ID,
		UserID:   userID,
		Color:    free,
		JoinedAt: time.Now(),
	}
	if free == domain.ColorWhite {
		game.WhiteUserID = &userID
	} else {
		game.BlackUserID = &userID
	}
	game.Status = domain.GameStatusActive

	// Seat row and game row commit together; a concurrent claim for the
	// same color loses on the (game_id, color) unique index and surfaces
	// as ColorUnavailable, while store failures pass through unchanged.
	if err := s.gameRepo.ClaimSeat(ctx, game, seat); err != nil {
		return nil, nil, err
	}

	game.Players = append(game.Players, seat)
	return game, seat, nil
}

func (s *GameService) GetGame(ctx context.Context, gameID uuid.UUID) (*domain.Game, []*domain.GameMove, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	moves, err := s.moveRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	return game, moves, nil
}

// SeatOf resolves the color a user holds in a game, for connection binding.
func (s *GameService) SeatOf(ctx context.Context, gameID, userID uuid.UUID) (*domain.GamePlayer, error) {
	player, err := s.playerRepo.GetByGameAndUser(ctx, gameID, userID)
	if err != nil {
		return nil, domain.ErrGameNotFound
	}
	return player, nil
}
