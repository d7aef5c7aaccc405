package handlers

import (
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dom/chess-web/internal/service"
	"github.com/dom/chess-web/internal/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	gameService *service.GameService
	logger      *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, gameService *service.GameService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		gameService: gameService,
		logger:      logger,
	}
}

// Handle authenticates the connection, resolves the caller's seat and binds
// the upgraded socket into the hub. Only seated players may connect.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	info, err := h.authService.ValidateSession(r.Context(), token)
	if err != nil {
		http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(r.URL.Query().Get("game_id"))
	if err != nil {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	seat, err := h.gameService.SeatOf(r.Context(), gameID, info.UserID)
	if err != nil {
		http.Error(w, "Not a player in this game", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, gameID, info.UserID, seat.Color, info.ExpiresAt)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
