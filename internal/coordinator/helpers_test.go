package coordinator

import (
	"io"
	"sync"
	"testing"

	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// recordingSender collects everything the coordinator pushes to one connection.
type recordingSender struct {
	mu         sync.Mutex
	events     []models.Event
	gameEvents []models.Event
	relays     [][]byte
}

func (rs *recordingSender) SendEvent(ev models.Event) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.events = append(rs.events, ev)
}

func (rs *recordingSender) SendGameEvent(ev models.Event) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.gameEvents = append(rs.gameEvents, ev)
}

func (rs *recordingSender) SendRelay(payload []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.relays = append(rs.relays, payload)
}

func (rs *recordingSender) clear() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.events = nil
	rs.gameEvents = nil
	rs.relays = nil
}

func (rs *recordingSender) total() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.events) + len(rs.gameEvents) + len(rs.relays)
}

// fakeRecorder keeps history records in memory.
type fakeRecorder struct {
	mu      sync.Mutex
	records []history.Record
}

func (fr *fakeRecorder) Record(rec history.Record) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.records = append(fr.records, rec)
}

func (fr *fakeRecorder) kinds() []history.Kind {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	out := make([]history.Kind, 0, len(fr.records))
	for _, r := range fr.records {
		out = append(out, r.Kind)
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestState builds a state whose ids are handed out 1, 2, 3... so tests can
// reason about the lowest-id host handover.
func newTestState(opts Options) *state {
	s := newState(opts, quietLogger(), opts.Recorder)
	var next models.ID
	s.randID = func() models.ID {
		next++
		return next
	}
	return s
}

// addPlayer registers a player with a fresh recordingSender.
func addPlayer(s *state, name string) (models.ID, *recordingSender) {
	conn := &recordingSender{}
	id := s.registerSession(nil, conn, models.LoginData{Username: name})
	return id, conn
}

// checkInvariants asserts the registry invariants that must hold after every message.
func checkInvariants(t *testing.T, s *state) {
	t.Helper()

	for id, p := range s.players {
		require.Equal(t, id, p.profile.ID, "profile id out of sync")
		if !p.hasRoom {
			require.False(t, p.profile.IsHost, "player %s is host without a room", id)
			require.False(t, p.inGame, "player %s is in game without a room", id)
			continue
		}
		r, ok := s.rooms[p.room]
		require.True(t, ok, "player %s references missing room %s", id, p.room)
		_, member := r.members[id]
		require.True(t, member, "room %s does not list player %s", p.room, id)
	}

	for roomID, r := range s.rooms {
		require.NotEmpty(t, r.members, "room %s persisted while empty", roomID)
		hosts, inGame := 0, 0
		for id := range r.members {
			p, ok := s.players[id]
			require.True(t, ok, "room %s lists unknown player %s", roomID, id)
			require.True(t, p.hasRoom && p.room == roomID, "player %s does not point back to room %s", id, roomID)
			if p.profile.IsHost {
				hosts++
			}
			if p.inGame {
				inGame++
			}
		}
		require.Equal(t, 1, hosts, "room %s host count", roomID)
		require.Equal(t, inGame, r.inGameCount, "room %s in-game count", roomID)
	}

	for roomID := range s.pool {
		r, ok := s.rooms[roomID]
		require.True(t, ok, "pool lists missing room %s", roomID)
		require.Equal(t, RoomMatchmaking, r.state, "pool lists room %s that is not matchmaking", roomID)
	}
}

func eventsOfType[T models.Event](evs []models.Event) []T {
	var out []T
	for _, ev := range evs {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
