package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/chess-web/internal/domain"
)

func TestClient_DeliverAfterClose(t *testing.T) {
	client := NewClient(nil, nil, uuid.New(), uuid.New(), domain.ColorWhite, time.Now().Add(time.Hour))

	assert.True(t, client.deliver([]byte(`{"type":"sync"}`)))

	client.Close()

	// A pruned client can still have a request queued on its session, so
	// the session may try to answer it after the prune. That must degrade
	// to a dropped message, never a panic.
	require.NotPanics(t, func() {
		assert.False(t, client.deliver([]byte(`{"type":"move_applied"}`)))
		client.sendError(ErrCodeOutOfTurn, "it is not your turn")
	})
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := NewClient(nil, nil, uuid.New(), uuid.New(), domain.ColorWhite, time.Now().Add(time.Hour))

	require.NotPanics(t, func() {
		client.Close()
		client.Close()
	})
}
