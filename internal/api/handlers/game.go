package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dom/chess-web/internal/api/middleware"
	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/service"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type CreateGameRequest struct {
	Color string `json:"color" validate:"required,oneof=white black"`
}

type JoinGameRequest struct {
	Color string `json:"color" validate:"omitempty,oneof=white black"`
}

type SeatResponse struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Color       string    `json:"color"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type GameResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	CurrentFEN  string         `json:"currentFen"`
	CurrentTurn string         `json:"currentTurn"`
	MoveCount   int            `json:"moveCount"`
	Outcome     string         `json:"outcome,omitempty"`
	Players     []SeatResponse `json:"players"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type MoveResponse struct {
	MoveNumber int    `json:"moveNumber"`
	MoveUCI    string `json:"moveUci"`
	MoveSAN    string `json:"moveSan"`
	FENAfter   string `json:"fenAfter"`
	Color      string `json:"color"`
}

type GameDetailResponse struct {
	Game  GameResponse   `json:"game"`
	Moves []MoveResponse `json:"moves"`
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), service.CreateGameInput{
		CreatedBy: userID,
		Color:     domain.Color(req.Color),
	})
	if err != nil {
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toGameResponse(game))
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	game, moves, err := h.gameService.GetGame(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, domain.ErrGameNotFound) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return
	}

	resp := GameDetailResponse{
		Game:  toGameResponse(game),
		Moves: make([]MoveResponse, 0, len(moves)),
	}
	for _, m := range moves {
		resp.Moves = append(resp.Moves, MoveResponse{
			MoveNumber: m.MoveNumber,
			MoveUCI:    m.MoveUCI,
			MoveSAN:    m.MoveSAN,
			FENAfter:   m.FENAfter,
			Color:      string(m.Color),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	var req JoinGameRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	game, seat, err := h.gameService.JoinGame(r.Context(), gameID, userID, domain.Color(req.Color))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
			http.Error(w, "Game not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrSeatConflict):
			http.Error(w, "Game already has two players", http.StatusConflict)
		case errors.Is(err, domain.ErrColorUnavailable):
			http.Error(w, "Color is already taken", http.StatusConflict)
		case errors.Is(err, domain.ErrGameFinished):
			http.Error(w, "Game is already over", http.StatusConflict)
		default:
			http.Error(w, "Failed to join game", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Game GameResponse `json:"game"`
		Seat SeatResponse `json:"seat"`
	}{
		Game: toGameResponse(game),
		Seat: toSeatResponse(seat),
	})
}

func toGameResponse(game *domain.Game) GameResponse {
	resp := GameResponse{
		ID:          game.ID.String(),
		Status:      string(game.Status),
		CurrentFEN:  game.CurrentFEN,
		CurrentTurn: string(game.CurrentTurn),
		MoveCount:   game.MoveCount,
		Outcome:     game.Outcome(),
		Players:     make([]SeatResponse, 0, len(game.Players)),
		CreatedAt:   game.CreatedAt,
		CompletedAt: game.CompletedAt,
	}
	for _, p := range game.Players {
		resp.Players = append(resp.Players, toSeatResponse(p))
	}
	return resp
}

func toSeatResponse(seat *domain.GamePlayer) SeatResponse {
	resp := SeatResponse{
		UserID:   seat.UserID.String(),
		Color:    string(seat.Color),
		JoinedAt: seat.JoinedAt,
	}
	if seat.User != nil {
		resp.DisplayName = seat.User.DisplayName
	}
	return resp
}
