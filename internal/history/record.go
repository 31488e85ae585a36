// internal/history/record.go
package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// Kind names a room lifecycle transition.
type Kind string

const (
	KindRoomCreated Kind = "room_created"
	KindRoomStarted Kind = "room_started"
	KindMatchEnded  Kind = "match_ended"
	KindRoomClosed  Kind = "room_closed"
)

// Record is one room lifecycle entry as stored by the historian.
type Record struct {
	ID        uuid.UUID              `json:"id"`
	RoomID    models.ID              `json:"room_id"`
	Kind      Kind                   `json:"kind"`
	Players   []models.ID            `json:"players"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	Timestamp int64                  `json:"timestamp"` // epoch millis
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(kind Kind, roomID models.ID, players []models.ID, detail map[string]interface{}) Record {
	return Record{
		ID:        uuid.New(),
		RoomID:    roomID,
		Kind:      kind,
		Players:   players,
		Detail:    detail,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Recorder accepts lifecycle records. Implementations must not block.
type Recorder interface {
	Record(rec Record)
}
