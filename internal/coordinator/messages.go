// internal/coordinator/messages.go
package coordinator

import (
	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// message is a unit of work for the coordinator goroutine.
type message interface {
	handle(s *state)
}

// FindRoomStatus distinguishes the outcomes of FindRoom.
type FindRoomStatus int

const (
	FindRoomSuccess FindRoomStatus = iota
	FindRoomGameIsFull
)

// FindRoomResult is the reply to FindRoom. RoomID, Players and Created are only
// meaningful when Status is FindRoomSuccess.
type FindRoomResult struct {
	Status  FindRoomStatus
	RoomID  models.ID
	Players []models.PlayerObject
	// Created is true when no pooled room accepted the player and a new public one was opened.
	Created bool
}

// CreateRoomResult is the reply to CreateRoom.
type CreateRoomResult struct {
	RoomID models.ID
	Player models.PlayerObject
}

// JoinStatus distinguishes the outcomes of JoinRoom.
type JoinStatus int

const (
	JoinSuccess JoinStatus = iota
	JoinRoomNotFound
	JoinAlreadyPlaying
)

func (s JoinStatus) String() string {
	switch s {
	case JoinSuccess:
		return "success"
	case JoinRoomNotFound:
		return "room_not_found"
	case JoinAlreadyPlaying:
		return "already_playing"
	default:
		return "unknown"
	}
}

// JoinRoomResult is the reply to JoinRoom. Players is set on success only.
type JoinRoomResult struct {
	Status  JoinStatus
	Players []models.PlayerObject
}

// GameEndAck carries the room roster back to a player leaving a match.
type GameEndAck struct {
	Players []models.PlayerObject
}

// Stats is a point-in-time summary of coordinator state.
type Stats struct {
	Players      int `json:"players"`
	Rooms        int `json:"rooms"`
	PooledRooms  int `json:"pooled_rooms"`
	PlayingRooms int `json:"playing_rooms"`
}

// result is a reply from the coordinator goroutine to a waiting caller.
type result[T any] struct {
	val T
	err error
}

// knownCaller reports whether id is registered. Unregistered callers are sessions that
// were taken over or already disconnected; they get ErrUnknownPlayer.
func (s *state) knownCaller(id models.ID) bool {
	if _, ok := s.players[id]; ok {
		return true
	}
	s.log.Debugf("request from unknown player %s ignored", id)
	return false
}

type registerSessionMsg struct {
	id    *models.ID
	conn  Sender
	login models.LoginData
	reply chan models.ID
}

func (m registerSessionMsg) handle(s *state) { m.reply <- s.registerSession(m.id, m.conn, m.login) }

type disconnectMsg struct {
	id   models.ID
	conn Sender
}

func (m disconnectMsg) handle(s *state) { s.disconnect(m.id, m.conn) }

type findRoomMsg struct {
	id    models.ID
	reply chan result[FindRoomResult]
}

func (m findRoomMsg) handle(s *state) {
	if !s.knownCaller(m.id) {
		m.reply <- result[FindRoomResult]{err: ErrUnknownPlayer}
		return
	}
	m.reply <- result[FindRoomResult]{val: s.findRoom(m.id)}
}

type createRoomMsg struct {
	id    models.ID
	reply chan result[CreateRoomResult]
}

func (m createRoomMsg) handle(s *state) {
	if !s.knownCaller(m.id) {
		m.reply <- result[CreateRoomResult]{err: ErrUnknownPlayer}
		return
	}
	m.reply <- result[CreateRoomResult]{val: s.createPrivateRoom(m.id)}
}

type joinRoomMsg struct {
	id     models.ID
	roomID models.ID
	reply  chan result[JoinRoomResult]
}

func (m joinRoomMsg) handle(s *state) {
	if !s.knownCaller(m.id) {
		m.reply <- result[JoinRoomResult]{err: ErrUnknownPlayer}
		return
	}
	m.reply <- result[JoinRoomResult]{val: s.join(m.id, m.roomID)}
}

type leaveRoomMsg struct {
	id models.ID
}

func (m leaveRoomMsg) handle(s *state) { s.leaveRoomIfAny(m.id) }

type editCosmeticsMsg struct {
	id        models.ID
	cosmetics models.PlayerCosmetics
}

func (m editCosmeticsMsg) handle(s *state) {
	if s.knownCaller(m.id) {
		s.editCosmetics(m.id, m.cosmetics)
	}
}

type startRoomMsg struct {
	id       models.ID
	connType models.RoomConnectionType
}

func (m startRoomMsg) handle(s *state) {
	if s.knownCaller(m.id) {
		s.startRoom(m.id, m.connType)
	}
}

type relayMsg struct {
	sender  models.ID
	payload []byte
}

func (m relayMsg) handle(s *state) {
	if s.knownCaller(m.sender) {
		s.relay(m.sender, m.payload)
	}
}

type gameEndReply struct {
	ack GameEndAck
	ok  bool
}

type gameEndMsg struct {
	id    models.ID
	reply chan result[gameEndReply]
}

func (m gameEndMsg) handle(s *state) {
	if !s.knownCaller(m.id) {
		m.reply <- result[gameEndReply]{err: ErrUnknownPlayer}
		return
	}
	ack, ok := s.gameEnd(m.id)
	m.reply <- result[gameEndReply]{val: gameEndReply{ack: ack, ok: ok}}
}

type statsMsg struct {
	reply chan Stats
}

func (m statsMsg) handle(s *state) { m.reply <- s.stats() }
