// internal/coordinator/sender.go
package coordinator

import "github.com/jason-s-yu/lobbyrelay/internal/models"

// Sender is the coordinator's handle on a player's connection. The session layer owns
// the connection; the coordinator only pushes to it. Implementations must return
// immediately and drop anything they cannot deliver.
type Sender interface {
	// SendEvent delivers a lobby-channel event.
	SendEvent(ev models.Event)
	// SendGameEvent delivers an in-game channel event.
	SendGameEvent(ev models.Event)
	// SendRelay delivers a relayed gameplay payload as-is. The slice is shared between
	// recipients and must not be modified.
	SendRelay(payload []byte)
}

type discardSender struct{}

func (discardSender) SendEvent(models.Event)     {}
func (discardSender) SendGameEvent(models.Event) {}
func (discardSender) SendRelay([]byte)           {}
