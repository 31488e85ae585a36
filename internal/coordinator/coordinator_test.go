package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startCoordinator(t *testing.T, opts Options) (*Coordinator, context.CancelFunc) {
	t.Helper()
	c := New(quietLogger(), opts)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c, cancel
}

func TestCoordinatorRequestResponse(t *testing.T) {
	c, _ := startCoordinator(t, Options{})
	ctx := context.Background()

	connA, connB := &recordingSender{}, &recordingSender{}
	a, err := c.RegisterSession(ctx, nil, connA, models.LoginData{Username: "a"})
	require.NoError(t, err)
	b, err := c.RegisterSession(ctx, nil, connB, models.LoginData{Username: "b"})
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	found, err := c.FindRoom(ctx, a)
	require.NoError(t, err)
	assert.True(t, found.Created)

	joined, err := c.JoinRoom(ctx, b, found.RoomID)
	require.NoError(t, err)
	assert.Equal(t, JoinSuccess, joined.Status)
	assert.Len(t, joined.Players, 2)

	require.NoError(t, c.StartRoom(ctx, a, models.ConnectionServerRelay))
	require.NoError(t, c.RelayMessage(ctx, a, []byte(`{"sender":"0","hp":10}`)))

	ack, ok, err := c.GameEndRequest(ctx, b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, ack.Players, 2)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Players: 2, Rooms: 1}, stats)

	// the stats round trip above guarantees the relay was processed
	require.Len(t, connB.relays, 1)
	assert.JSONEq(t, `{"sender":"`+a.String()+`","hp":10}`, string(connB.relays[0]))

	require.NoError(t, c.LeaveRoom(ctx, b))
	require.NoError(t, c.Disconnect(ctx, a, connA))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Players: 1}, stats)
}

func TestCoordinatorUnknownPlayer(t *testing.T) {
	c, _ := startCoordinator(t, Options{})
	ctx := context.Background()

	_, err := c.FindRoom(ctx, 12345)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	_, err = c.CreateRoom(ctx, 12345)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	_, err = c.JoinRoom(ctx, 12345, 1)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	_, ok, err := c.GameEndRequest(ctx, 12345)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.False(t, ok)

	// async requests are dropped quietly
	assert.NoError(t, c.EditCosmetics(ctx, 12345, models.PlayerCosmetics{Hat: 1}))
	assert.NoError(t, c.StartRoom(ctx, 12345, models.ConnectionServerRelay))
	assert.NoError(t, c.RelayMessage(ctx, 12345, []byte(`{}`)))
	assert.NoError(t, c.LeaveRoom(ctx, 12345))
	assert.NoError(t, c.Disconnect(ctx, 12345, nil))

	_, err = c.Stats(ctx)
	assert.NoError(t, err)
}

func TestCoordinatorConcurrentMatchmaking(t *testing.T) {
	c, _ := startCoordinator(t, Options{RoomCapacity: 4})
	ctx := context.Background()

	const players = 64
	var wg sync.WaitGroup
	results := make([]FindRoomResult, players)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := c.RegisterSession(ctx, nil, &recordingSender{}, models.LoginData{Username: "p"})
			if !assert.NoError(t, err) {
				return
			}
			res, err := c.FindRoom(ctx, id)
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	perRoom := map[models.ID]int{}
	for _, res := range results {
		perRoom[res.RoomID]++
	}
	for room, n := range perRoom {
		assert.LessOrEqual(t, n, 4, "room %s over capacity", room)
	}

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, players, stats.Players)
	assert.Equal(t, len(perRoom), stats.Rooms)
	assert.GreaterOrEqual(t, stats.Rooms, players/4)
}

func TestCoordinatorStopped(t *testing.T) {
	c, cancel := startCoordinator(t, Options{})
	cancel()
	<-c.Done()

	_, err := c.RegisterSession(context.Background(), nil, &recordingSender{}, models.LoginData{})
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, c.LeaveRoom(context.Background(), 1), ErrStopped)
}

func TestCoordinatorContextCancelled(t *testing.T) {
	// no Run: nothing drains the inbox
	c := New(quietLogger(), Options{InboxSize: 1})
	require.NoError(t, c.LeaveRoom(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.FindRoom(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
