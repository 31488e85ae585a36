// internal/models/player.go
package models

// PlayerCosmetics is the avatar configuration a player shows to the room.
// It must stay comparable; the coordinator relies on == to skip redundant updates.
type PlayerCosmetics struct {
	Skin  int    `json:"skin"`
	Hat   int    `json:"hat"`
	Color string `json:"color"`
}

// LoginData is the profile a client presents when it registers a session.
type LoginData struct {
	Username  string          `json:"username"`
	Cosmetics PlayerCosmetics `json:"cosmetics"`
}

// PlayerObject is the public view of a player shared with the rest of a room.
type PlayerObject struct {
	ID        ID              `json:"id"`
	Username  string          `json:"username"`
	Cosmetics PlayerCosmetics `json:"cosmetics"`
	IsHost    bool            `json:"is_host"`
}

// RoomConnectionType tells clients how gameplay traffic flows once a room starts.
type RoomConnectionType string

const (
	// ConnectionServerRelay routes gameplay through the server relay.
	ConnectionServerRelay RoomConnectionType = "server_relay"
	// ConnectionPeerToPeer has clients set up a direct transport using the broadcast id.
	ConnectionPeerToPeer RoomConnectionType = "peer_to_peer"
)

// Valid reports whether t is a known connection type.
func (t RoomConnectionType) Valid() bool {
	return t == ConnectionServerRelay || t == ConnectionPeerToPeer
}
