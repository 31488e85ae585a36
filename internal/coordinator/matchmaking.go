// internal/coordinator/matchmaking.go
package coordinator

import (
	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// acceptsJoin is the matchmaking predicate. Without a capacity every pooled room is acceptable.
func (s *state) acceptsJoin(r *room) bool {
	if s.opts.RoomCapacity > 0 && len(r.members) >= s.opts.RoomCapacity {
		return false
	}
	return true
}

// findAvailableRoom returns the first pooled room that accepts playerID, scanning in
// map order. The player's own room is never a candidate.
func (s *state) findAvailableRoom(playerID models.ID) (models.ID, bool) {
	current, inRoom := models.ID(0), false
	if p, ok := s.players[playerID]; ok {
		current, inRoom = p.room, p.hasRoom
	}

	scanned := 0
	for roomID := range s.pool {
		if s.opts.MaxScan > 0 && scanned >= s.opts.MaxScan {
			break
		}
		scanned++
		if inRoom && roomID == current {
			continue
		}
		if s.acceptsJoin(s.mustRoom(roomID)) {
			return roomID, true
		}
	}
	return 0, false
}

func (s *state) findRoom(playerID models.ID) FindRoomResult {
	s.mustPlayer(playerID)

	if roomID, ok := s.findAvailableRoom(playerID); ok {
		s.joinRoom(playerID, roomID)
		return FindRoomResult{
			Status:  FindRoomSuccess,
			RoomID:  roomID,
			Players: s.roomProfiles(s.mustRoom(roomID)),
		}
	}

	if s.opts.MaxRooms > 0 && len(s.rooms) >= s.opts.MaxRooms {
		return FindRoomResult{Status: FindRoomGameIsFull}
	}

	s.leaveRoomIfAny(playerID)
	roomID := s.createRoom(playerID, true)
	return FindRoomResult{
		Status:  FindRoomSuccess,
		RoomID:  roomID,
		Players: s.roomProfiles(s.mustRoom(roomID)),
		Created: true,
	}
}

func (s *state) createPrivateRoom(playerID models.ID) CreateRoomResult {
	s.mustPlayer(playerID)
	s.leaveRoomIfAny(playerID)
	roomID := s.createRoom(playerID, false)
	return CreateRoomResult{
		RoomID: roomID,
		Player: s.mustPlayer(playerID).profile,
	}
}

// join is the JoinRoom request. It either fully succeeds or changes nothing.
func (s *state) join(playerID, roomID models.ID) JoinRoomResult {
	p := s.mustPlayer(playerID)

	r, ok := s.rooms[roomID]
	if !ok {
		return JoinRoomResult{Status: JoinRoomNotFound}
	}
	if r.state != RoomMatchmaking {
		return JoinRoomResult{Status: JoinAlreadyPlaying}
	}
	if p.hasRoom && p.room == roomID {
		return JoinRoomResult{Status: JoinSuccess, Players: s.roomProfiles(r)}
	}

	s.joinRoom(playerID, roomID)
	return JoinRoomResult{Status: JoinSuccess, Players: s.roomProfiles(r)}
}
