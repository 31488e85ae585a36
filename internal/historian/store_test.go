package historian

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPGStoreRoundTrip needs a disposable Postgres named by HISTORIAN_TEST_DATABASE_URL.
func TestPGStoreRoundTrip(t *testing.T) {
	url := os.Getenv("HISTORIAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HISTORIAN_TEST_DATABASE_URL not set")
	}
	require.NoError(t, Migrate(url, quietLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPGStore(pool)
	rec := history.NewRecord(history.KindRoomCreated, 7, []models.ID{1, 2}, map[string]interface{}{"public": true})
	require.NoError(t, store.InsertBatch(ctx, []history.Record{rec}))
	// re-inserting the same batch is a no-op
	require.NoError(t, store.InsertBatch(ctx, []history.Record{rec}))

	var kind string
	var players []int64
	err = pool.QueryRow(ctx, `SELECT kind, players FROM room_events WHERE id = $1`, rec.ID).Scan(&kind, &players)
	require.NoError(t, err)
	assert.Equal(t, "room_created", kind)
	assert.Equal(t, []int64{1, 2}, players)
}
