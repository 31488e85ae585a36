// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

// frame is one queued websocket message.
type frame struct {
	typ  websocket.MessageType
	data []byte
}

// Session is one websocket client. It is the coordinator's Sender for that client:
// every send only queues a frame for the write pump and never blocks.
type Session struct {
	ID     uuid.UUID
	Remote string

	out      chan frame
	done     chan struct{}
	replaced chan struct{}

	closeOnce    sync.Once
	replacedOnce sync.Once

	logger *logrus.Logger
}

// NewSession creates a session with an outbound queue of the given size.
func NewSession(remote string, buffer int, logger *logrus.Logger) *Session {
	return &Session{
		ID:       uuid.New(),
		Remote:   remote,
		out:      make(chan frame, buffer),
		done:     make(chan struct{}),
		replaced: make(chan struct{}),
		logger:   logger,
	}
}

// SendEvent queues a lobby event.
func (s *Session) SendEvent(ev models.Event) {
	s.enqueueEvent(ev)
	if _, ok := ev.(models.EventSessionReplaced); ok {
		s.replacedOnce.Do(func() { close(s.replaced) })
	}
}

// SendGameEvent queues an in-game event.
func (s *Session) SendGameEvent(ev models.Event) {
	s.enqueueEvent(ev)
}

// SendRelay queues a relayed gameplay payload as a binary frame. The payload is
// shared between recipients and is written as is.
func (s *Session) SendRelay(payload []byte) {
	s.enqueue(frame{typ: websocket.MessageBinary, data: payload})
}

// Write marshals v and queues it as a text frame.
func (s *Session) Write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warnf("session %s: failed to marshal outgoing packet: %v", s.ID, err)
		return
	}
	s.enqueue(frame{typ: websocket.MessageText, data: data})
}

// WriteError is a convenience to send an error packet.
func (s *Session) WriteError(msg string) {
	s.Write(errorPacket{Type: "error", Message: msg})
}

// Close stops accepting frames. Frames already queued are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Replaced is closed once the coordinator handed this session's player to another socket.
func (s *Session) Replaced() <-chan struct{} {
	return s.replaced
}

func (s *Session) enqueueEvent(ev models.Event) {
	data, err := models.EncodeEvent(ev)
	if err != nil {
		s.logger.Warnf("session %s: failed to encode %s event: %v", s.ID, ev.EventType(), err)
		return
	}
	s.enqueue(frame{typ: websocket.MessageText, data: data})
}

func (s *Session) enqueue(f frame) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- f:
	default:
		s.logger.Warnf("session %s: outbound queue full, dropped %s frame", s.ID, f.typ)
	}
}
