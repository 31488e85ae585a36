// Package coordinator owns every player and room of a service instance and processes
// all client events against that state from a single goroutine.
//
// Players are registered by the session layer with a Sender handle. Rooms are opened
// by matchmaking (public, listed in the pool) or explicitly (private), change hands
// when their host leaves and are destroyed as soon as they are empty. Once a room
// starts, its members switch from lobby events to the in-game channel and exchange
// gameplay payloads through RelayMessage.
//
// The exported methods are safe for concurrent use: they enqueue a message and, for
// request/response operations, wait for the reply. Nothing inside the loop blocks.
package coordinator

import (
	"context"
	"errors"

	"github.com/jason-s-yu/lobbyrelay/internal/history"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("coordinator stopped")
	// ErrUnknownPlayer is returned for requests from ids that are not registered.
	ErrUnknownPlayer = errors.New("unknown player")
)

// Options tune matchmaking and queueing. The zero value is usable.
type Options struct {
	// InboxSize is the capacity of the message queue (default 1024).
	InboxSize int
	// MaxRooms caps the number of live rooms matchmaking may open; 0 means no cap.
	MaxRooms int
	// RoomCapacity makes matchmaking skip rooms with this many members; 0 means no limit.
	RoomCapacity int
	// MaxScan bounds how many pooled rooms one FindRoom inspects; 0 scans the whole pool.
	MaxScan int
	// Recorder receives room lifecycle records. Nil disables history.
	Recorder history.Recorder
}

const defaultInboxSize = 1024

// Coordinator serializes every state transition through one goroutine.
type Coordinator struct {
	inbox  chan message
	done   chan struct{}
	state  *state
	logger *logrus.Logger
}

// New creates a Coordinator. Call Run to start processing.
func New(logger *logrus.Logger, opts Options) *Coordinator {
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	return &Coordinator{
		inbox:  make(chan message, opts.InboxSize),
		done:   make(chan struct{}),
		state:  newState(opts, logger, opts.Recorder),
		logger: logger,
	}
}

// Run processes messages until ctx is cancelled. It must be called exactly once.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	c.logger.Info("coordinator started")
	for {
		select {
		case msg := <-c.inbox:
			msg.handle(c.state)
		case <-ctx.Done():
			c.logger.WithFields(logrus.Fields{
				"players": len(c.state.players),
				"rooms":   len(c.state.rooms),
			}).Info("coordinator stopped")
			return
		}
	}
}

// Done is closed when Run returns.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) send(ctx context.Context, msg message) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.inbox <- msg:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call enqueues msg and waits for its reply on ch.
func call[T any](ctx context.Context, c *Coordinator, msg message, ch chan T) (T, error) {
	var zero T
	if err := c.send(ctx, msg); err != nil {
		return zero, err
	}
	select {
	case v := <-ch:
		return v, nil
	case <-c.done:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// RegisterSession binds conn to a player and returns the player's id. A known id is
// resumed; nil or an unknown id allocates a new player.
func (c *Coordinator) RegisterSession(ctx context.Context, id *models.ID, conn Sender, login models.LoginData) (models.ID, error) {
	ch := make(chan models.ID, 1)
	return call(ctx, c, registerSessionMsg{id: id, conn: conn, login: login, reply: ch}, ch)
}

// Disconnect removes a player after taking it out of its room. Pass the session's
// own Sender so a session that was taken over cannot remove the newer one; nil
// removes unconditionally.
func (c *Coordinator) Disconnect(ctx context.Context, id models.ID, conn Sender) error {
	return c.send(ctx, disconnectMsg{id: id, conn: conn})
}

// FindRoom joins the first open public room or opens a new one.
func (c *Coordinator) FindRoom(ctx context.Context, id models.ID) (FindRoomResult, error) {
	ch := make(chan result[FindRoomResult], 1)
	res, err := call(ctx, c, findRoomMsg{id: id, reply: ch}, ch)
	if err != nil {
		return FindRoomResult{}, err
	}
	return res.val, res.err
}

// CreateRoom opens a private room hosted by the caller.
func (c *Coordinator) CreateRoom(ctx context.Context, id models.ID) (CreateRoomResult, error) {
	ch := make(chan result[CreateRoomResult], 1)
	res, err := call(ctx, c, createRoomMsg{id: id, reply: ch}, ch)
	if err != nil {
		return CreateRoomResult{}, err
	}
	return res.val, res.err
}

// JoinRoom moves the caller into roomID.
func (c *Coordinator) JoinRoom(ctx context.Context, id, roomID models.ID) (JoinRoomResult, error) {
	ch := make(chan result[JoinRoomResult], 1)
	res, err := call(ctx, c, joinRoomMsg{id: id, roomID: roomID, reply: ch}, ch)
	if err != nil {
		return JoinRoomResult{}, err
	}
	return res.val, res.err
}

// LeaveRoom takes the caller out of its room, if any.
func (c *Coordinator) LeaveRoom(ctx context.Context, id models.ID) error {
	return c.send(ctx, leaveRoomMsg{id: id})
}

// EditCosmetics updates the caller's avatar and tells its room.
func (c *Coordinator) EditCosmetics(ctx context.Context, id models.ID, cosmetics models.PlayerCosmetics) error {
	return c.send(ctx, editCosmeticsMsg{id: id, cosmetics: cosmetics})
}

// StartRoom starts a match in the caller's room.
func (c *Coordinator) StartRoom(ctx context.Context, id models.ID, connType models.RoomConnectionType) error {
	return c.send(ctx, startRoomMsg{id: id, connType: connType})
}

// RelayMessage forwards a gameplay payload to the sender's in-game room mates.
func (c *Coordinator) RelayMessage(ctx context.Context, sender models.ID, payload []byte) error {
	return c.send(ctx, relayMsg{sender: sender, payload: payload})
}

// GameEndRequest takes the caller out of its match. ok is false when the caller was
// not in one.
func (c *Coordinator) GameEndRequest(ctx context.Context, id models.ID) (ack GameEndAck, ok bool, err error) {
	ch := make(chan result[gameEndReply], 1)
	res, err := call(ctx, c, gameEndMsg{id: id, reply: ch}, ch)
	if err != nil {
		return GameEndAck{}, false, err
	}
	if res.err != nil {
		return GameEndAck{}, false, res.err
	}
	return res.val.ack, res.val.ok, nil
}

// Stats snapshots the registries.
func (c *Coordinator) Stats(ctx context.Context) (Stats, error) {
	ch := make(chan Stats, 1)
	return call(ctx, c, statsMsg{reply: ch}, ch)
}
