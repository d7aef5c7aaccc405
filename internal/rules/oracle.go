// Package rules wraps the chess rules library behind the narrow oracle
// contract the game coordinator consumes: apply a proposed move to a
// position, and report whether a position is terminal. The oracle is pure
// and deterministic; it never touches game records or connections.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/dom/chess-web/internal/domain"
)

// MoveOutcome is the result of legally applying one move.
type MoveOutcome struct {
	UCI      string
	SAN      string
	FENAfter string
	NextTurn domain.Color
	IsCheck  bool
	Verdict  Verdict
}

// Verdict is the oracle's terminal-status report for a position.
type Verdict struct {
	Terminal bool
	Result   domain.GameResult // checkmate, stalemate or draw when terminal
	Winner   domain.Color      // set for checkmate only
}

type Oracle struct{}

func New() *Oracle {
	return &Oracle{}
}

// ApplyMove validates move (UCI, falling back to SAN) against the position
// encoded by fen. It returns domain.ErrIllegalMove for anything the rules
// reject; the input position is never mutated.
func (o *Oracle) ApplyMove(fen, move string) (*MoveOutcome, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}

	pos := game.Position()
	raw := strings.TrimSpace(move)
	if raw == "" {
		return nil, domain.ErrIllegalMove
	}

	var applied *nchess.Move
	if mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); derr == nil {
		if merr := game.Move(mv, nil); merr != nil {
			return nil, domain.ErrIllegalMove
		}
		applied = mv
	} else {
		if perr := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); perr != nil {
			return nil, domain.ErrIllegalMove
		}
		moves := game.Moves()
		applied = moves[len(moves)-1]
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, applied)

	return &MoveOutcome{
		UCI:      applied.String(),
		SAN:      san,
		FENAfter: game.FEN(),
		NextTurn: colorFrom(game.Position().Turn()),
		IsCheck:  strings.ContainsAny(san, "+#"),
		Verdict:  verdictFrom(game),
	}, nil
}

// TerminalStatus reports whether the position encoded by fen is terminal.
func (o *Oracle) TerminalStatus(fen string) (Verdict, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return Verdict{}, err
	}
	return verdictFrom(game), nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return nchess.NewGame(opt), nil
}

func verdictFrom(game *nchess.Game) Verdict {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return Verdict{Terminal: true, Result: domain.ResultCheckmate, Winner: domain.ColorWhite}
	case nchess.BlackWon:
		return Verdict{Terminal: true, Result: domain.ResultCheckmate, Winner: domain.ColorBlack}
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return Verdict{Terminal: true, Result: domain.ResultStalemate}
		}
		return Verdict{Terminal: true, Result: domain.ResultDraw}
	}
	return Verdict{}
}

func colorFrom(c nchess.Color) domain.Color {
	if c == nchess.White {
		return domain.ColorWhite
	}
	return domain.ColorBlack
}
