package rules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/rules"
)

func TestOracle_ApplyMove_Legal(t *testing.T) {
	oracle := rules.New()

	outcome, err := oracle.ApplyMove(domain.StartFEN, "e2e4")
	require.NoError(t, err)

	assert.Equal(t, "e2e4", outcome.UCI)
	assert.Equal(t, "e4", outcome.SAN)
	assert.Equal(t, domain.ColorBlack, outcome.NextTurn)
	assert.False(t, outcome.IsCheck)
	assert.False(t, outcome.Verdict.Terminal)
	assert.NotEqual(t, domain.StartFEN, outcome.FENAfter)
	assert.Contains(t, outcome.FENAfter, " b ")
}

func TestOracle_ApplyMove_AcceptsSAN(t *testing.T) {
	oracle := rules.New()

	outcome, err := oracle.ApplyMove(domain.StartFEN, "Nf3")
	require.NoError(t, err)

	assert.Equal(t, "g1f3", outcome.UCI)
	assert.Equal(t, "Nf3", outcome.SAN)
}

func TestOracle_ApplyMove_Illegal(t *testing.T) {
	oracle := rules.New()

	tests := []struct {
		name string
		move string
	}{
		{name: "pawn moving three squares", move: "e2e5"},
		{name: "moving opponent piece", move: "e7e5"},
		{name: "empty square", move: "d4d5"},
		{name: "garbage input", move: "xyzzy"},
		{name: "empty move", move: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oracle.ApplyMove(domain.StartFEN, tt.move)
			assert.ErrorIs(t, err, domain.ErrIllegalMove)
		})
	}
}

func TestOracle_ApplyMove_Checkmate(t *testing.T) {
	oracle := rules.New()

	// Fool's mate
	fen := domain.StartFEN
	for _, mv := range []string{"f2f3", "e7e5", "g2g4"} {
		outcome, err := oracle.ApplyMove(fen, mv)
		require.NoError(t, err)
		fen = outcome.FENAfter
	}

	outcome, err := oracle.ApplyMove(fen, "d8h4")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(outcome.SAN, "#"))
	assert.True(t, outcome.IsCheck)
	assert.True(t, outcome.Verdict.Terminal)
	assert.Equal(t, domain.ResultCheckmate, outcome.Verdict.Result)
	assert.Equal(t, domain.ColorBlack, outcome.Verdict.Winner)
}

func TestOracle_TerminalStatus(t *testing.T) {
	oracle := rules.New()

	tests := []struct {
		name    string
		fen     string
		verdict rules.Verdict
	}{
		{
			name:    "start position is ongoing",
			fen:     domain.StartFEN,
			verdict: rules.Verdict{},
		},
		{
			name:    "stalemate",
			fen:     "k7/8/1Q6/8/8/8/8/7K b - - 0 1",
			verdict: rules.Verdict{Terminal: true, Result: domain.ResultStalemate},
		},
		{
			name:    "checkmate",
			fen:     "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
			verdict: rules.Verdict{Terminal: true, Result: domain.ResultCheckmate, Winner: domain.ColorBlack},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := oracle.TerminalStatus(tt.fen)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, verdict)
		})
	}
}

func TestOracle_ApplyMove_DoesNotMutateInput(t *testing.T) {
	oracle := rules.New()

	first, err := oracle.ApplyMove(domain.StartFEN, "e2e4")
	require.NoError(t, err)

	// Applying a different move to the same input position must start from
	// the same board, not from the first move's result.
	second, err := oracle.ApplyMove(domain.StartFEN, "d2d4")
	require.NoError(t, err)

	assert.NotEqual(t, first.FENAfter, second.FENAfter)
	assert.Equal(t, "d4", second.SAN)
}
