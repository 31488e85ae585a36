// internal/handlers/packets.go
package handlers

import (
	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// clientPacket is any control packet a client sends as a text frame. Which fields
// are read depends on Type.
type clientPacket struct {
	Type string `json:"type"`

	// login
	ID        *models.ID              `json:"id,omitempty"`
	Token     string                  `json:"token,omitempty"`
	Username  string                  `json:"username,omitempty"`
	Cosmetics *models.PlayerCosmetics `json:"cosmetics,omitempty"`

	// join_room
	RoomID *models.ID `json:"room_id,omitempty"`

	// start_room
	ConnectionType models.RoomConnectionType `json:"connection_type,omitempty"`
}

type loginAckPacket struct {
	Type  string    `json:"type"`
	ID    models.ID `json:"id"`
	Token string    `json:"token"`
}

type findRoomAckPacket struct {
	Type    string                `json:"type"`
	RoomID  models.ID             `json:"room_id"`
	Players []models.PlayerObject `json:"players"`
	Created bool                  `json:"created"`
}

type createRoomAckPacket struct {
	Type   string              `json:"type"`
	RoomID models.ID           `json:"room_id"`
	Player models.PlayerObject `json:"player"`
}

type joinRoomAckPacket struct {
	Type    string                `json:"type"`
	RoomID  models.ID             `json:"room_id"`
	Players []models.PlayerObject `json:"players"`
}

type joinRoomErrorPacket struct {
	Type   string    `json:"type"`
	RoomID models.ID `json:"room_id"`
	Reason string    `json:"reason"`
}

type gameEndAckPacket struct {
	Type    string                `json:"type"`
	Players []models.PlayerObject `json:"players"`
}

// typePacket is a reply that carries nothing but its type.
type typePacket struct {
	Type string `json:"type"`
}

type errorPacket struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
