// internal/models/events.go
package models

import (
	"encoding/json"
	"fmt"
)

// Event is an outbound notification pushed to a player's connection.
// EventType is used as the "type" field of the wire envelope.
type Event interface {
	EventType() string
}

// EventPlayerJoined announces a new room member to players in the lobby view.
type EventPlayerJoined struct {
	Player PlayerObject `json:"player"`
}

// EventPlayerLeft announces a departure to players in the lobby view.
// NewHost is set only when the departing player was the host.
type EventPlayerLeft struct {
	Player  ID  `json:"player"`
	NewHost *ID `json:"new_host,omitempty"`
}

// EventPlayerAvatarChange carries a member's new cosmetics.
type EventPlayerAvatarChange struct {
	Player    ID              `json:"player"`
	Cosmetics PlayerCosmetics `json:"cosmetics"`
}

// EventRoomStart tells every member the match is starting. BroadcastID is the
// session label clients use to set up their gameplay transport.
type EventRoomStart struct {
	ConnectionType RoomConnectionType `json:"connection_type"`
	BroadcastID    string             `json:"broadcast_id"`
}

// GameEventPlayerLeft is the in-game flavor of EventPlayerLeft, delivered on the game channel.
type GameEventPlayerLeft struct {
	Player  ID  `json:"player"`
	NewHost *ID `json:"new_host,omitempty"`
}

// EventSessionReplaced tells a connection that a newer session took over its player id.
type EventSessionReplaced struct{}

func (EventPlayerJoined) EventType() string       { return "player_joined" }
func (EventPlayerLeft) EventType() string         { return "player_left" }
func (EventPlayerAvatarChange) EventType() string { return "player_avatar_change" }
func (EventRoomStart) EventType() string          { return "room_start" }
func (GameEventPlayerLeft) EventType() string     { return "game_player_left" }
func (EventSessionReplaced) EventType() string    { return "session_replaced" }

// EncodeEvent flattens ev into a JSON object with its type under the "type" key.
func EncodeEvent(ev Event) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ev.EventType(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("event %s is not an object: %w", ev.EventType(), err)
	}
	typ, _ := json.Marshal(ev.EventType())
	fields["type"] = typ
	return json.Marshal(fields)
}
