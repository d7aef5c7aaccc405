package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dom/chess-web/internal/repository"
	"github.com/dom/chess-web/internal/rules"
)

// Hub is the connection registry: it owns every live client and the
// per-game sessions they bind to. It is created at process start, passed by
// reference to whatever needs it, and torn down on shutdown.
type Hub struct {
	sessions map[uuid.UUID]*GameSession
	clients  map[*Client]bool

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool

	gameRepo repository.GameRepository
	moveRepo repository.GameMoveRepository
	oracle   *rules.Oracle
	logger   *zap.Logger

	mu sync.RWMutex
}

func NewHub(gameRepo repository.GameRepository, moveRepo repository.GameMoveRepository, oracle *rules.Oracle, logger *zap.Logger) *Hub {
	return &Hub{
		sessions:   make(map[uuid.UUID]*GameSession),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		gameRepo:   gameRepo,
		moveRepo:   moveRepo,
		oracle:     oracle,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			sessions := make([]*GameSession, 0, len(h.sessions))
			for _, s := range h.sessions {
				sessions = append(sessions, s)
			}
			h.mu.Unlock()

			// Stop all sessions and wait for their loops to exit before
			// touching client channels.
			for _, s := range sessions {
				s.Stop()
			}

			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.sessions = make(map[uuid.UUID]*GameSession)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

// Stop gracefully shuts down the hub and every game session. It blocks
// until the hub has fully shut down.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		client.Close()
		return
	}
	h.clients[client] = true
	session, err := h.sessionForLocked(client.gameID)
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("rejecting connection for unknown game",
			zap.String("game_id", client.gameID.String()),
			zap.Error(err),
		)
		client.sendError(ErrCodeGameNotFound, "game not found")
		client.Close()
		return
	}

	client.session = session
	session.join <- client
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	session := client.session
	h.mu.Unlock()

	if session != nil {
		session.leave <- client
	} else {
		client.Close()
	}
}

// sessionForLocked returns the live session for gameID, spinning one up
// from the durable store on first contact. Caller holds h.mu.
func (h *Hub) sessionForLocked(gameID uuid.UUID) (*GameSession, error) {
	if session, ok := h.sessions[gameID]; ok {
		return session, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	game, err := h.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	session := NewGameSession(game, h.gameRepo, h.moveRepo, h.oracle, h.logger)
	h.sessions[gameID] = session
	go session.Run()

	h.logger.Info("game session started", zap.String("game_id", gameID.String()))
	return session, nil
}

// Register binds a client into the registry and its game session.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client; safe to call multiple times and after the
// hub has stopped.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	default:
		// Hub stopped between check and send - that's ok
	}
}
