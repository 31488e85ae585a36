// internal/coordinator/state.go
package coordinator

import (
	"math/rand"
	"sort"

	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

// RoomState is the lifecycle state of a room.
type RoomState int

const (
	// RoomMatchmaking rooms accept joins and have not started.
	RoomMatchmaking RoomState = iota
	// RoomPlaying rooms are running a match.
	RoomPlaying
)

func (s RoomState) String() string {
	switch s {
	case RoomMatchmaking:
		return "matchmaking"
	case RoomPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

type player struct {
	conn    Sender
	profile models.PlayerObject
	room    models.ID
	hasRoom bool
	inGame  bool
}

type room struct {
	state       RoomState
	members     map[models.ID]struct{}
	inGameCount int
	public      bool
}

// state is everything the coordinator owns. Only the coordinator goroutine touches it.
type state struct {
	players map[models.ID]*player
	rooms   map[models.ID]*room
	pool    map[models.ID]struct{}

	opts     Options
	log      *logrus.Logger
	recorder history.Recorder
	randID   func() models.ID
}

func newState(opts Options, logger *logrus.Logger, recorder history.Recorder) *state {
	return &state{
		players:  make(map[models.ID]*player),
		rooms:    make(map[models.ID]*room),
		pool:     make(map[models.ID]struct{}),
		opts:     opts,
		log:      logger,
		recorder: recorder,
		randID:   func() models.ID { return models.ID(rand.Uint32()) },
	}
}

// allocatePlayerID draws random ids until one is free in the player registry.
func (s *state) allocatePlayerID() models.ID {
	for {
		id := s.randID()
		if _, taken := s.players[id]; !taken {
			return id
		}
	}
}

// allocateRoomID draws random ids until one is free in the room registry.
func (s *state) allocateRoomID() models.ID {
	for {
		id := s.randID()
		if _, taken := s.rooms[id]; !taken {
			return id
		}
	}
}

// mustPlayer resolves a player that an invariant says exists. A miss is a bug.
func (s *state) mustPlayer(id models.ID) *player {
	p, ok := s.players[id]
	if !ok {
		s.log.Panicf("coordinator: player %s referenced but not registered", id)
	}
	return p
}

// mustRoom resolves a room that an invariant says exists. A miss is a bug.
func (s *state) mustRoom(id models.ID) *room {
	r, ok := s.rooms[id]
	if !ok {
		s.log.Panicf("coordinator: room %s referenced but not registered", id)
	}
	return r
}

// sortedMembers returns the member ids of r in ascending order.
func sortedMembers(r *room) []models.ID {
	ids := make([]models.ID, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// roomProfiles snapshots the public profile of every member, ordered by id.
func (s *state) roomProfiles(r *room) []models.PlayerObject {
	ids := sortedMembers(r)
	out := make([]models.PlayerObject, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.mustPlayer(id).profile)
	}
	return out
}

func (s *state) record(kind history.Kind, roomID models.ID, r *room, detail map[string]interface{}) {
	if s.recorder == nil {
		return
	}
	var members []models.ID
	if r != nil {
		members = sortedMembers(r)
	}
	s.recorder.Record(history.NewRecord(kind, roomID, members, detail))
}

func (s *state) stats() Stats {
	st := Stats{
		Players:     len(s.players),
		Rooms:       len(s.rooms),
		PooledRooms: len(s.pool),
	}
	for _, r := range s.rooms {
		if r.state == RoomPlaying {
			st.PlayingRooms++
		}
	}
	return st
}
