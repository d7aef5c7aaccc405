package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/repository"
	"github.com/dom/chess-web/internal/rules"
)

// GameSession is the single in-process authority for one game. All state
// mutations funnel through its Run loop, so at most one move is in flight
// per game while different games proceed independently.
type GameSession struct {
	id      uuid.UUID
	game    *domain.Game
	history []string // SAN, ordered by move number
	clients map[*Client]bool

	gameRepo repository.GameRepository
	moveRepo repository.GameMoveRepository
	oracle   *rules.Oracle
	logger   *zap.Logger

	join   chan *Client
	leave  chan *Client
	move   chan *moveRequest
	resign chan *Client
	stop   chan struct{}
	done   chan struct{}
}

type moveRequest struct {
	client *Client
	move   string
}

func NewGameSession(game *domain.Game, gameRepo repository.GameRepository, moveRepo repository.GameMoveRepository, oracle *rules.Oracle, logger *zap.Logger) *GameSession {
	return &GameSession{
		id:       game.ID,
		game:     game,
		clients:  make(map[*Client]bool),
		gameRepo: gameRepo,
		moveRepo: moveRepo,
		oracle:   oracle,
		logger:   logger.With(zap.String("game_id", game.ID.String())),
		join:     make(chan *Client),
		leave:    make(chan *Client),
		move:     make(chan *moveRequest),
		resign:   make(chan *Client),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *GameSession) Run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case client := <-s.join:
			s.handleJoin(client)
		case client := <-s.leave:
			s.handleLeave(client)
		case req := <-s.move:
			s.handleMove(req)
		case client := <-s.resign:
			s.handleResign(client)
		}
	}
}

// Stop ends the Run loop and blocks until it has exited.
func (s *GameSession) Stop() {
	close(s.stop)
	<-s.done
}

// handleJoin attaches a connection, refreshes the snapshot from the store
// and sends the full resumable state to the new connection. The refresh
// covers seats claimed over HTTP since the session was spun up.
func (s *GameSession) handleJoin(client *Client) {
	s.clients[client] = true

	if err := s.reload(); err != nil {
		s.logger.Error("failed to reload game state", zap.Error(err))
	}

	client.deliver(marshal(&SyncMessage{
		Type:        MessageTypeSync,
		FEN:         s.game.CurrentFEN,
		CurrentTurn: s.game.CurrentTurn,
		Status:      s.game.Status,
		MoveHistory: append([]string{}, s.history...),
	}))

	if s.connectionsOf(client.userID) == 1 {
		s.broadcast(marshal(&PresenceMessage{
			Type:   MessageTypePresence,
			UserID: client.userID.String(),
			Online: true,
		}))
	}

	s.logger.Info("connection joined",
		zap.String("user_id", client.userID.String()),
		zap.String("color", string(client.color)),
	)
}

func (s *GameSession) handleLeave(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	client.Close()

	if s.connectionsOf(client.userID) == 0 {
		s.broadcast(marshal(&PresenceMessage{
			Type:   MessageTypePresence,
			UserID: client.userID.String(),
			Online: false,
		}))
	}
}

// handleMove runs the full submitMove pipeline: turn enforcement, oracle
// legality, durable append, then broadcast. Persistence strictly precedes
// visibility; a failed commit leaves the in-memory snapshot at the last
// committed state and only the submitter hears about it.
func (s *GameSession) handleMove(req *moveRequest) {
	switch s.game.Status {
	case domain.GameStatusCompleted:
		req.client.sendError(ErrCodeGameFinished, "game is already over")
		return
	case domain.GameStatusWaiting:
		req.client.sendError(ErrCodeGameNotActive, "waiting for an opponent to join")
		return
	}

	if req.client.color != s.game.CurrentTurn {
		req.client.sendError(ErrCodeOutOfTurn, "it is not your turn")
		return
	}

	outcome, err := s.oracle.ApplyMove(s.game.CurrentFEN, req.move)
	if err != nil {
		req.client.sendError(ErrCodeIllegalMove, "illegal move: "+req.move)
		return
	}

	now := time.Now()
	next := *s.game
	next.CurrentFEN = outcome.FENAfter
	next.CurrentTurn = outcome.NextTurn
	next.MoveCount = s.game.MoveCount + 1

	record := &domain.GameMove{
		ID:          uuid.New(),
		GameID:      s.id,
		UserID:      req.client.userID,
		MoveNumber:  next.MoveCount,
		MoveUCI:     outcome.UCI,
		MoveSAN:     outcome.SAN,
		FENAfter:    outcome.FENAfter,
		Color:       req.client.color,
		IsCheck:     outcome.IsCheck,
		IsCheckmate: outcome.Verdict.Result == domain.ResultCheckmate,
		IsStalemate: outcome.Verdict.Result == domain.ResultStalemate,
		IsDraw:      outcome.Verdict.Result == domain.ResultDraw,
		CreatedAt:   now,
	}

	if outcome.Verdict.Terminal {
		next.Status = domain.GameStatusCompleted
		next.Result = outcome.Verdict.Result
		next.CompletedAt = &now
		if outcome.Verdict.Result == domain.ResultCheckmate {
			next.WinnerID = next.SeatFor(outcome.Verdict.Winner)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.gameRepo.AppendMove(ctx, &next, record); err != nil {
		s.logger.Error("failed to persist move",
			zap.String("move", outcome.UCI),
			zap.Error(err),
		)
		req.client.sendError(ErrCodePersistence, "move could not be saved, please retry")
		return
	}

	s.game = &next
	s.history = append(s.history, outcome.SAN)

	s.broadcast(marshal(&MoveAppliedMessage{
		Type:        MessageTypeMoveApplied,
		MoveUCI:     outcome.UCI,
		MoveSAN:     outcome.SAN,
		FENAfter:    outcome.FENAfter,
		CurrentTurn: outcome.NextTurn,
		MoverColor:  req.client.color,
	}))

	if outcome.Verdict.Terminal {
		s.broadcast(marshal(&GameEndedMessage{
			Type:        MessageTypeGameEnded,
			Outcome:     s.game.Outcome(),
			CompletedAt: now,
		}))
		s.logger.Info("game completed",
			zap.String("outcome", s.game.Outcome()),
			zap.Int("moves", s.game.MoveCount),
		)
	}
}

func (s *GameSession) handleResign(client *Client) {
	switch s.game.Status {
	case domain.GameStatusCompleted:
		client.sendError(ErrCodeGameFinished, "game is already over")
		return
	case domain.GameStatusWaiting:
		client.sendError(ErrCodeGameNotActive, "waiting for an opponent to join")
		return
	}

	now := time.Now()
	next := *s.game
	next.Status = domain.GameStatusCompleted
	next.Result = domain.ResultResigned
	next.CompletedAt = &now
	next.WinnerID = next.SeatFor(client.color.Opposite())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.gameRepo.Update(ctx, &next); err != nil {
		s.logger.Error("failed to persist resignation", zap.Error(err))
		client.sendError(ErrCodePersistence, "resignation could not be saved, please retry")
		return
	}

	s.game = &next

	s.broadcast(marshal(&GameEndedMessage{
		Type:        MessageTypeGameEnded,
		Outcome:     s.game.Outcome(),
		CompletedAt: now,
	}))
	s.logger.Info("game resigned", zap.String("by", string(client.color)))
}

// reload replaces the in-memory snapshot with the durably committed state.
func (s *GameSession) reload() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	game, err := s.gameRepo.GetByID(ctx, s.id)
	if err != nil {
		return err
	}
	moves, err := s.moveRepo.GetByGameID(ctx, s.id)
	if err != nil {
		return err
	}

	history := make([]string, 0, len(moves))
	for _, m := range moves {
		history = append(history, m.MoveSAN)
	}

	s.game = game
	s.history = history
	return nil
}

// broadcast fans data out to every attached connection. A connection that
// cannot keep up is pruned; delivery to the rest is unaffected and the
// triggering operation never fails.
func (s *GameSession) broadcast(data []byte) {
	if data == nil {
		return
	}
	for client := range s.clients {
		if !client.deliver(data) {
			delete(s.clients, client)
			client.Close()
			s.logger.Warn("dropped unresponsive connection",
				zap.String("user_id", client.userID.String()),
			)
		}
	}
}

func (s *GameSession) connectionsOf(userID uuid.UUID) int {
	n := 0
	for client := range s.clients {
		if client.userID == userID {
			n++
		}
	}
	return n
}
