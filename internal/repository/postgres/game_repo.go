package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dom/chess-web/internal/domain"
)

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *gameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) Create(ctx context.Context, game *domain.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *gameRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	var game domain.Game
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Players").
		Preload("Players.User").
		First(&game, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) Update(ctx context.Context, game *domain.Game) error {
	return r.db.WithContext(ctx).Save(game).Error
}

// AppendMove commits the move row and the updated game row together. The
// caller passes the game already mutated to the post-move state; if the
// transaction fails, nothing is visible to readers.
func (r *gameRepository) AppendMove(ctx context.Context, game *domain.Game, move *domain.GameMove) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(move).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Game{}).
			Where("id = ?", game.ID).
			Updates(map[string]interface{}{
				"current_fen":  game.CurrentFEN,
				"current_turn": game.CurrentTurn,
				"move_count":   game.MoveCount,
				"status":       game.Status,
				"result":       game.Result,
				"winner_id":    game.WinnerID,
				"completed_at": game.CompletedAt,
			}).Error
	})
}

// ClaimSeat writes the seat row and the game-row fields it implies in one
// transaction, so a crash or failure between the two can never leave a
// seated player on a game that still looks WAITING. The (game_id, color)
// unique index arbitrates concurrent claims; only that conflict maps to
// ErrColorUnavailable, anything else is a store failure and passes through.
func (r *gameRepository) ClaimSeat(ctx context.Context, game *domain.Game, seat *domain.GamePlayer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(seat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrColorUnavailable
			}
			return err
		}
		return tx.Model(&domain.Game{}).
			Where("id = ?", game.ID).
			Updates(map[string]interface{}{
				"white_user_id": game.WhiteUserID,
				"black_user_id": game.BlackUserID,
				"status":        game.Status,
			}).Error
	})
}

type gamePlayerRepository struct {
	db *gorm.DB
}

func NewGamePlayerRepository(db *gorm.DB) *gamePlayerRepository {
	return &gamePlayerRepository{db: db}
}

func (r *gamePlayerRepository) Create(ctx context.Context, player *domain.GamePlayer) error {
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *gamePlayerRepository) GetByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.GamePlayer, error) {
	var players []*domain.GamePlayer
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("game_id = ?", gameID).
		Order("joined_at ASC").
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (r *gamePlayerRepository) GetByGameAndUser(ctx context.Context, gameID, userID uuid.UUID) (*domain.GamePlayer, error) {
	var player domain.GamePlayer
	err := r.db.WithContext(ctx).
		First(&player, "game_id = ? AND user_id = ?", gameID, userID).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

type gameMoveRepository struct {
	db *gorm.DB
}

func NewGameMoveRepository(db *gorm.DB) *gameMoveRepository {
	return &gameMoveRepository{db: db}
}

func (r *gameMoveRepository) GetByGameID(ctx context.Context, gameID uuid.UUID) ([]*domain.GameMove, error) {
	var moves []*domain.GameMove
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("move_number ASC").
		Find(&moves).Error
	if err != nil {
		return nil, err
	}
	return moves, nil
}
