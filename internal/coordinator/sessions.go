// internal/coordinator/sessions.go
package coordinator

import (
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

// registerSession returns the id the connection should use from now on. A known id
// keeps its player and takes over the connection; the profile is only refreshed while
// the player is outside a room so identities don't drift mid-match.
func (s *state) registerSession(id *models.ID, conn Sender, login models.LoginData) models.ID {
	if conn == nil {
		conn = discardSender{}
	}

	if id != nil {
		if p, ok := s.players[*id]; ok {
			if p.conn != conn {
				p.conn.SendEvent(models.EventSessionReplaced{})
				p.conn = conn
			}
			if !p.hasRoom {
				p.profile.Username = login.Username
				p.profile.Cosmetics = login.Cosmetics
			}
			s.log.WithField("player", *id).Debug("session resumed")
			return *id
		}
	}

	newID := s.allocatePlayerID()
	s.players[newID] = &player{
		conn: conn,
		profile: models.PlayerObject{
			ID:        newID,
			Username:  login.Username,
			Cosmetics: login.Cosmetics,
		},
	}
	s.log.WithFields(logrus.Fields{
		"player":   newID,
		"username": login.Username,
	}).Debug("session registered")
	return newID
}

// disconnect removes a player, leaving its room first. A non-nil conn that no longer
// matches the player's handle belongs to a session that was taken over and is ignored.
func (s *state) disconnect(id models.ID, conn Sender) {
	p, ok := s.players[id]
	if !ok {
		s.log.Debugf("disconnect for unknown player %s ignored", id)
		return
	}
	if conn != nil && p.conn != conn {
		s.log.Debugf("stale disconnect for player %s ignored", id)
		return
	}
	s.leaveRoomIfAny(id)
	delete(s.players, id)
	s.log.WithField("player", id).Debug("player disconnected")
}

func (s *state) editCosmetics(id models.ID, cosmetics models.PlayerCosmetics) {
	p := s.mustPlayer(id)
	if p.profile.Cosmetics == cosmetics {
		return
	}
	p.profile.Cosmetics = cosmetics

	if !p.hasRoom {
		return
	}
	s.broadcastLobby(s.mustRoom(p.room), models.EventPlayerAvatarChange{
		Player:    id,
		Cosmetics: cosmetics,
	}, id)
}
