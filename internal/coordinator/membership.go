// internal/coordinator/membership.go
package coordinator

import (
	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

// createRoom registers a new room with hostID as its only member and host.
// Public rooms are listed in the matchmaking pool.
func (s *state) createRoom(hostID models.ID, public bool) models.ID {
	host := s.mustPlayer(hostID)
	id := s.allocateRoomID()

	r := &room{
		state:   RoomMatchmaking,
		members: map[models.ID]struct{}{hostID: {}},
		public:  public,
	}
	s.rooms[id] = r

	host.profile.IsHost = true
	host.room = id
	host.hasRoom = true

	if public {
		s.pool[id] = struct{}{}
	}

	s.log.WithFields(logrus.Fields{
		"room":   id,
		"host":   hostID,
		"public": public,
	}).Debug("room created")
	s.record(history.KindRoomCreated, id, r, map[string]interface{}{"public": public})
	return id
}

// removeRoom destroys a room and delists it.
func (s *state) removeRoom(id models.ID) {
	delete(s.rooms, id)
	delete(s.pool, id)
	s.log.Debugf("room %s removed because it's empty", id)
	s.record(history.KindRoomClosed, id, nil, nil)
}

// joinRoom moves playerID into roomID. The caller has already checked that the
// room exists, is in matchmaking and is not the player's current room.
func (s *state) joinRoom(playerID, roomID models.ID) {
	s.leaveRoomIfAny(playerID)

	r := s.mustRoom(roomID)
	p := s.mustPlayer(playerID)

	r.members[playerID] = struct{}{}
	p.room = roomID
	p.hasRoom = true

	s.broadcastLobby(r, models.EventPlayerJoined{Player: p.profile}, playerID)
}

// leaveRoomIfAny runs the departure procedure: membership and in-game bookkeeping,
// host handover to the lowest remaining id, leave notifications, and room teardown
// once the last member is gone.
func (s *state) leaveRoomIfAny(playerID models.ID) {
	p, ok := s.players[playerID]
	if !ok || !p.hasRoom {
		return
	}
	roomID := p.room
	r := s.mustRoom(roomID)

	delete(r.members, playerID)
	if p.inGame {
		r.inGameCount--
	}

	wasHost := p.profile.IsHost
	p.room = 0
	p.hasRoom = false
	p.profile.IsHost = false
	p.inGame = false

	if len(r.members) == 0 {
		s.removeRoom(roomID)
		return
	}

	var newHost *models.ID
	if wasHost {
		next := sortedMembers(r)[0]
		s.mustPlayer(next).profile.IsHost = true
		newHost = &next
	}

	lobbyEvent := models.EventPlayerLeft{Player: playerID, NewHost: newHost}
	gameEvent := models.GameEventPlayerLeft{Player: playerID, NewHost: newHost}
	for id := range r.members {
		member, ok := s.players[id]
		if !ok {
			continue
		}
		if member.inGame {
			member.conn.SendGameEvent(gameEvent)
		} else {
			member.conn.SendEvent(lobbyEvent)
		}
	}
}

// broadcastLobby sends ev to every member of r that is not in a match, skipping skipID.
func (s *state) broadcastLobby(r *room, ev models.Event, skipID models.ID) {
	for id := range r.members {
		if id == skipID {
			continue
		}
		member, ok := s.players[id]
		if !ok || member.inGame {
			continue
		}
		member.conn.SendEvent(ev)
	}
}
