package websocket_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/chess-web/internal/domain"
	"github.com/dom/chess-web/internal/rules"
	"github.com/dom/chess-web/internal/testutil"
)

const defaultTimeout = 5 * time.Second

// setupActiveGame registers two users, creates a game with the first as
// white and seats the second as black.
func setupActiveGame(t *testing.T, ts *testutil.TestServer) (whiteToken, blackToken, gameID string) {
	t.Helper()

	_, whiteToken = testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	_, blackToken = testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	game := testutil.CreateGameAPI(t, ts, whiteToken, "white")
	resp := testutil.JoinGameAPI(t, ts, blackToken, game.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return whiteToken, blackToken, game.ID
}

func TestGameFlow_SyncOnConnect(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, _, gameID := setupActiveGame(t, ts)

	wsClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))

	sync := wsClient.ExpectSync(defaultTimeout)
	assert.Equal(t, domain.StartFEN, sync.FEN)
	assert.Equal(t, domain.ColorWhite, sync.CurrentTurn)
	assert.Equal(t, domain.GameStatusActive, sync.Status)
	assert.Empty(t, sync.MoveHistory)
}

func TestGameFlow_MoveBroadcastToBothPlayers(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	whiteClient.SendMove("e2e4")

	for _, client := range []*testutil.WSClient{whiteClient, blackClient} {
		applied := client.ExpectMoveApplied(defaultTimeout)
		assert.Equal(t, "e2e4", applied.MoveUCI)
		assert.Equal(t, "e4", applied.MoveSAN)
		assert.Equal(t, domain.ColorBlack, applied.CurrentTurn)
		assert.Equal(t, domain.ColorWhite, applied.MoverColor)
		assert.NotEmpty(t, applied.FENAfter)
	}

	// The black reply comes back the same way, in SAN this time.
	blackClient.SendMove("e5")
	applied := whiteClient.ExpectMoveApplied(defaultTimeout)
	assert.Equal(t, "e7e5", applied.MoveUCI)
	assert.Equal(t, domain.ColorWhite, applied.CurrentTurn)
}

func TestGameFlow_OutOfTurn(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	time.Sleep(100 * time.Millisecond)
	whiteClient.DrainMessages()

	// White moves first; black jumping the queue is rejected and nothing
	// reaches the opponent.
	blackClient.SendMove("e7e5")
	wsErr := blackClient.ExpectError(defaultTimeout)
	assert.Equal(t, "out_of_turn", wsErr.Code)

	whiteClient.ExpectNoMessage(300 * time.Millisecond)
}

func TestGameFlow_IllegalMove(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	time.Sleep(100 * time.Millisecond)
	blackClient.DrainMessages()

	whiteClient.SendMove("e2e5")
	wsErr := whiteClient.ExpectError(defaultTimeout)
	assert.Equal(t, "illegal_move", wsErr.Code)

	blackClient.ExpectNoMessage(300 * time.Millisecond)

	// The rejection left the turn untouched, so a legal move still works.
	whiteClient.SendMove("e2e4")
	applied := whiteClient.ExpectMoveApplied(defaultTimeout)
	assert.Equal(t, "e2e4", applied.MoveUCI)
}

func TestGameFlow_MoveWhileWaitingForOpponent(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	game := testutil.CreateGameAPI(t, ts, token, "white")

	wsClient := testutil.NewWSClient(t, ts.WebSocketURL(token, game.ID))

	sync := wsClient.ExpectSync(defaultTimeout)
	assert.Equal(t, domain.GameStatusWaiting, sync.Status)

	wsClient.SendMove("e2e4")
	wsErr := wsClient.ExpectError(defaultTimeout)
	assert.Equal(t, "game_not_active", wsErr.Code)
}

func TestGameFlow_CheckmateEndsGame(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	// Fool's mate.
	moves := []struct {
		client *testutil.WSClient
		move   string
	}{
		{whiteClient, "f2f3"},
		{blackClient, "e7e5"},
		{whiteClient, "g2g4"},
		{blackClient, "d8h4"},
	}
	for _, m := range moves {
		m.client.SendMove(m.move)
		whiteClient.ExpectMoveApplied(defaultTimeout)
		blackClient.ExpectMoveApplied(defaultTimeout)
	}

	for _, client := range []*testutil.WSClient{whiteClient, blackClient} {
		ended := client.ExpectGameEnded(defaultTimeout)
		assert.Equal(t, "checkmate(black)", ended.Outcome)
		assert.False(t, ended.CompletedAt.IsZero())
	}

	// The finished game accepts no further moves.
	whiteClient.SendMove("a2a3")
	wsErr := whiteClient.ExpectError(defaultTimeout)
	assert.Equal(t, "game_finished", wsErr.Code)

	// The durable move log is contiguous and replays to the stored position.
	req, err := http.NewRequest(http.MethodGet, ts.APIURL("/games/"+gameID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+whiteToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		Game struct {
			Status     string `json:"status"`
			CurrentFEN string `json:"currentFen"`
			Outcome    string `json:"outcome"`
		} `json:"game"`
		Moves []struct {
			MoveNumber int    `json:"moveNumber"`
			MoveUCI    string `json:"moveUci"`
		} `json:"moves"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, "completed", detail.Game.Status)
	assert.Equal(t, "checkmate(black)", detail.Game.Outcome)
	require.Len(t, detail.Moves, 4)

	oracle := rules.New()
	fen := domain.StartFEN
	for i, m := range detail.Moves {
		assert.Equal(t, i+1, m.MoveNumber)
		outcome, err := oracle.ApplyMove(fen, m.MoveUCI)
		require.NoError(t, err)
		fen = outcome.FENAfter
	}
	assert.Equal(t, detail.Game.CurrentFEN, fen)
}

func TestGameFlow_Resign(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	whiteClient.SendResign()

	for _, client := range []*testutil.WSClient{whiteClient, blackClient} {
		ended := client.ExpectGameEnded(defaultTimeout)
		assert.Equal(t, "resigned(white)", ended.Outcome)
	}
}

func TestGameFlow_ReconnectGetsFullHistory(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	whiteClient.SendMove("e2e4")
	whiteClient.ExpectMoveApplied(defaultTimeout)
	blackClient.ExpectMoveApplied(defaultTimeout)

	blackClient.SendMove("e7e5")
	applied := whiteClient.ExpectMoveApplied(defaultTimeout)
	require.Equal(t, "e7e5", applied.MoveUCI)
	lastFEN := applied.FENAfter

	blackClient.Close()

	reconnected := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	sync := reconnected.ExpectSync(defaultTimeout)
	assert.Equal(t, lastFEN, sync.FEN)
	assert.Equal(t, domain.ColorWhite, sync.CurrentTurn)
	assert.Equal(t, domain.GameStatusActive, sync.Status)
	assert.Equal(t, []string{"e4", "e5"}, sync.MoveHistory)
}

func TestGameFlow_Presence(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, blackToken, gameID := setupActiveGame(t, ts)

	whiteClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteClient.ExpectSync(defaultTimeout)
	whiteClient.DrainMessages()

	blackClient := testutil.NewWSClient(t, ts.WebSocketURL(blackToken, gameID))
	blackClient.ExpectSync(defaultTimeout)

	online := whiteClient.ExpectPresence(defaultTimeout)
	assert.True(t, online.Online)

	blackClient.Close()

	offline := whiteClient.ExpectPresence(defaultTimeout)
	assert.Equal(t, online.UserID, offline.UserID)
	assert.False(t, offline.Online)
}

func TestGameFlow_CompetingMovesOnlyOneApplies(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, _, gameID := setupActiveGame(t, ts)

	// The same seat held from two connections, both moving against the
	// same pre-move position. The session applies exactly one; the other
	// is judged against the post-move state and rejected.
	whiteA := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteA.ExpectSync(defaultTimeout)
	whiteB := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))
	whiteB.ExpectSync(defaultTimeout)

	whiteA.SendMove("e2e4")
	whiteB.SendMove("d2d4")

	countsA := whiteA.CollectTypes(time.Second)
	countsB := whiteB.CollectTypes(time.Second)

	assert.Equal(t, 1, countsA["move_applied"])
	assert.Equal(t, 1, countsB["move_applied"])
	assert.Equal(t, 1, countsA["error"]+countsB["error"])

	req, err := http.NewRequest(http.MethodGet, ts.APIURL("/games/"+gameID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+whiteToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var detail struct {
		Game struct {
			MoveCount   int    `json:"moveCount"`
			CurrentTurn string `json:"currentTurn"`
		} `json:"game"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, 1, detail.Game.MoveCount)
	assert.Equal(t, "black", detail.Game.CurrentTurn)
}

func TestGameFlow_UnknownGameOnConnect(t *testing.T) {
	ts := testutil.NewTestServer(t)
	whiteToken, _, gameID := setupActiveGame(t, ts)

	// The seat row survives but the game itself is gone by the time the
	// hub looks it up.
	require.NoError(t, ts.DB.DB.Exec("DELETE FROM games WHERE id = ?", gameID).Error)

	wsClient := testutil.NewWSClient(t, ts.WebSocketURL(whiteToken, gameID))

	wsErr := wsClient.ExpectError(defaultTimeout)
	assert.Equal(t, "game_not_found", wsErr.Code)
}

func TestGameFlow_SpectatorRejected(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, _, gameID := setupActiveGame(t, ts)

	_, strangerToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	req, err := http.NewRequest(http.MethodGet, ts.APIURL("/ws?token="+strangerToken+"&game_id="+gameID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
