// internal/coordinator/match.go
package coordinator

import (
	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

// minPlayersToStart is the smallest room that can begin a match.
const minPlayersToStart = 2

// startRoom moves the caller's room from matchmaking into a match. Any start attempt
// delists the room, even one that is rejected.
func (s *state) startRoom(playerID models.ID, connType models.RoomConnectionType) {
	p := s.mustPlayer(playerID)
	if !p.hasRoom {
		return
	}
	roomID := p.room
	r := s.mustRoom(roomID)

	delete(s.pool, roomID)

	if r.state != RoomMatchmaking || len(r.members) < minPlayersToStart {
		return
	}
	r.state = RoomPlaying

	if r.inGameCount > 0 {
		// members still flagged in-game never ended their previous match
		var stragglers []models.ID
		for id := range r.members {
			if member, ok := s.players[id]; ok && member.inGame {
				stragglers = append(stragglers, id)
			}
		}
		for _, id := range stragglers {
			s.log.WithFields(logrus.Fields{"room": roomID, "player": id}).Info("evicting straggler from previous match")
			s.leaveRoomIfAny(id)
		}

		var ok bool
		if r, ok = s.rooms[roomID]; !ok {
			return
		}
	}

	event := models.EventRoomStart{
		ConnectionType: connType,
		BroadcastID:    roomID.String(),
	}
	for id := range r.members {
		member, ok := s.players[id]
		if !ok {
			continue
		}
		member.inGame = true
		member.conn.SendEvent(event)
	}
	r.inGameCount = len(r.members)

	s.record(history.KindRoomStarted, roomID, r, map[string]interface{}{"connection_type": connType})
}

// gameEnd returns the caller to the lobby view. The room goes back to matchmaking
// but stays out of the pool.
func (s *state) gameEnd(playerID models.ID) (GameEndAck, bool) {
	p := s.mustPlayer(playerID)
	if !p.hasRoom || !p.inGame {
		return GameEndAck{}, false
	}
	r := s.mustRoom(p.room)

	r.state = RoomMatchmaking
	p.inGame = false
	r.inGameCount--

	s.record(history.KindMatchEnded, p.room, r, map[string]interface{}{"player": playerID})
	return GameEndAck{Players: s.roomProfiles(r)}, true
}

// relay forwards a gameplay payload to the sender's in-game room mates with the
// sender field rewritten to the authoritative id.
func (s *state) relay(senderID models.ID, payload []byte) {
	if len(payload) == 0 {
		return
	}
	p := s.mustPlayer(senderID)
	if !p.hasRoom {
		return
	}
	r, ok := s.rooms[p.room]
	if !ok {
		return
	}

	out, err := rewriteSender(payload, senderID)
	if err != nil {
		s.log.WithField("player", senderID).Debugf("dropping relay payload: %v", err)
		return
	}

	for id := range r.members {
		if id == senderID {
			continue
		}
		member, ok := s.players[id]
		if !ok || !member.inGame {
			continue
		}
		member.conn.SendRelay(out)
	}
}
