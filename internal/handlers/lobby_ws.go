// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/lobbyrelay/internal/auth"
	"github.com/jason-s-yu/lobbyrelay/internal/coordinator"
	"github.com/jason-s-yu/lobbyrelay/internal/middleware"
	"github.com/jason-s-yu/lobbyrelay/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Lobby is the coordinator surface the socket handler drives.
type Lobby interface {
	RegisterSession(ctx context.Context, id *models.ID, conn coordinator.Sender, login models.LoginData) (models.ID, error)
	Disconnect(ctx context.Context, id models.ID, conn coordinator.Sender) error
	FindRoom(ctx context.Context, id models.ID) (coordinator.FindRoomResult, error)
	CreateRoom(ctx context.Context, id models.ID) (coordinator.CreateRoomResult, error)
	JoinRoom(ctx context.Context, id, roomID models.ID) (coordinator.JoinRoomResult, error)
	LeaveRoom(ctx context.Context, id models.ID) error
	EditCosmetics(ctx context.Context, id models.ID, cosmetics models.PlayerCosmetics) error
	StartRoom(ctx context.Context, id models.ID, connType models.RoomConnectionType) error
	RelayMessage(ctx context.Context, sender models.ID, payload []byte) error
	GameEndRequest(ctx context.Context, id models.ID) (coordinator.GameEndAck, bool, error)
	Stats(ctx context.Context) (coordinator.Stats, error)
}

// Options tune the per-socket behaviour.
type Options struct {
	// SendBuffer is the outbound frame queue per session.
	SendBuffer int
	// RelayRate and RelayBurst shape the token bucket applied to binary relay frames.
	RelayRate  float64
	RelayBurst int
	// LoginTimeout bounds the wait for the first packet.
	LoginTimeout time.Duration
	// OriginPatterns is handed to websocket.Accept.
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.RelayRate <= 0 {
		o.RelayRate = 60
	}
	if o.RelayBurst <= 0 {
		o.RelayBurst = 120
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = 10 * time.Second
	}
	if len(o.OriginPatterns) == 0 {
		o.OriginPatterns = []string{"*"} // Adjust in production
	}
	return o
}

// LobbyWSHandler accepts a lobby socket, logs the client in and pumps packets between
// the socket and the coordinator until either side goes away.
func LobbyWSHandler(logger *logrus.Logger, lobby Lobby, tokens *auth.Tokens, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "session ended")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		sess := NewSession(r.RemoteAddr, opts.SendBuffer, logger)
		defer sess.Close()
		middleware.LogWebSocketConnect(logger, sess.ID.String(), sess.Remote)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		first, err := readLogin(ctx, c, opts.LoginTimeout)
		if err != nil {
			middleware.LogWebSocketDisconnect(logger, sess.ID.String(), sess.Remote, "", err)
			c.Close(LoginRequiredError, "first packet must be login")
			return
		}

		h := &socketHandler{
			conn:    c,
			sess:    sess,
			lobby:   lobby,
			tokens:  tokens,
			limiter: rate.NewLimiter(rate.Limit(opts.RelayRate), opts.RelayBurst),
			logger:  logger,
		}

		go writePump(ctx, cancel, c, sess, logger)

		if err := h.login(ctx, first); err != nil {
			middleware.LogWebSocketDisconnect(logger, sess.ID.String(), sess.Remote, "", err)
			closeForError(c, err)
			return
		}

		err = h.readPump(ctx)

		// ---- Cleanup after readPump exits ----
		sess.Close()
		dctx, dcancel := context.WithTimeout(context.Background(), 2*time.Second)
		if derr := lobby.Disconnect(dctx, h.playerID, sess); derr != nil {
			logger.Debugf("disconnect of player %s not delivered: %v", h.playerID, derr)
		}
		dcancel()
		closeForError(c, err)
		middleware.LogWebSocketDisconnect(logger, sess.ID.String(), sess.Remote, h.playerID.String(), err)
	}
}

// readLogin waits for the first packet, which must be a login text frame.
func readLogin(ctx context.Context, c *websocket.Conn, timeout time.Duration) (clientPacket, error) {
	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	typ, msg, err := c.Read(loginCtx)
	if err != nil {
		return clientPacket{}, fmt.Errorf("waiting for login: %w", err)
	}
	if typ != websocket.MessageText {
		return clientPacket{}, errors.New("login must be a text frame")
	}
	var p clientPacket
	if err := json.Unmarshal(msg, &p); err != nil {
		return clientPacket{}, fmt.Errorf("invalid login json: %w", err)
	}
	if p.Type != "login" {
		return clientPacket{}, fmt.Errorf("expected login, got %q", p.Type)
	}
	return p, nil
}

// closeForError picks a close code for the error that ended a session.
func closeForError(c *websocket.Conn, err error) {
	if errors.Is(err, coordinator.ErrStopped) {
		c.Close(ServiceUnavailableError, "server shutting down")
	}
}

// socketHandler dispatches the packets of one logged-in socket.
type socketHandler struct {
	conn     *websocket.Conn
	sess     *Session
	lobby    Lobby
	tokens   *auth.Tokens
	limiter  *rate.Limiter
	logger   *logrus.Logger
	playerID models.ID
}

// login registers the player, resuming the id in a valid token, and answers login_ack.
func (h *socketHandler) login(ctx context.Context, p clientPacket) error {
	var resume *models.ID
	if p.Token != "" && h.tokens != nil {
		id, err := h.tokens.Authenticate(p.Token)
		switch {
		case err != nil:
			h.logger.Debugf("session %s: ignoring token: %v", h.sess.ID, err)
		case p.ID != nil && *p.ID != id:
			h.logger.Debugf("session %s: token is for %s, not %s", h.sess.ID, id, *p.ID)
		default:
			resume = &id
		}
	}

	login := models.LoginData{Username: p.Username}
	if p.Cosmetics != nil {
		login.Cosmetics = *p.Cosmetics
	}
	id, err := h.lobby.RegisterSession(ctx, resume, h.sess, login)
	if err != nil {
		return err
	}
	h.playerID = id

	var token string
	if h.tokens != nil {
		token, err = h.tokens.Issue(id)
		if err != nil {
			h.logger.Warnf("session %s: failed to issue token for player %s: %v", h.sess.ID, id, err)
		}
	}
	h.sess.Write(loginAckPacket{Type: "login_ack", ID: id, Token: token})
	h.logger.WithFields(logrus.Fields{
		"session": h.sess.ID.String(),
		"player":  id.String(),
		"resumed": resume != nil,
	}).Info("player logged in")
	return nil
}

// readPump handles incoming frames until the socket closes or the coordinator refuses
// the player.
func (h *socketHandler) readPump(ctx context.Context) error {
	for {
		typ, msg, err := h.conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			return err
		}

		if typ == websocket.MessageBinary {
			if err := h.relay(ctx, msg); err != nil {
				return err
			}
			continue
		}

		var p clientPacket
		if err := json.Unmarshal(msg, &p); err != nil {
			h.logger.Debugf("session %s: invalid json: %v", h.sess.ID, err)
			h.sess.WriteError("Invalid JSON format")
			continue
		}
		if err := h.handlePacket(ctx, p); err != nil {
			return err
		}
	}
}

func (h *socketHandler) relay(ctx context.Context, payload []byte) error {
	if !h.limiter.Allow() {
		h.logger.Debugf("session %s: relay rate exceeded, dropped %d bytes", h.sess.ID, len(payload))
		return nil
	}
	return h.lobby.RelayMessage(ctx, h.playerID, payload)
}

// handlePacket interprets the "type" field of a control packet. Returned errors come
// from the coordinator and end the session; bad packets are answered with an error.
func (h *socketHandler) handlePacket(ctx context.Context, p clientPacket) error {
	id := h.playerID

	switch p.Type {
	case "find_room":
		res, err := h.lobby.FindRoom(ctx, id)
		if err != nil {
			return err
		}
		if res.Status == coordinator.FindRoomGameIsFull {
			h.sess.Write(typePacket{Type: "find_room_full"})
			return nil
		}
		h.sess.Write(findRoomAckPacket{Type: "find_room_ack", RoomID: res.RoomID, Players: res.Players, Created: res.Created})

	case "create_room":
		res, err := h.lobby.CreateRoom(ctx, id)
		if err != nil {
			return err
		}
		h.sess.Write(createRoomAckPacket{Type: "create_room_ack", RoomID: res.RoomID, Player: res.Player})

	case "join_room":
		if p.RoomID == nil {
			h.sess.WriteError("join_room requires room_id")
			return nil
		}
		res, err := h.lobby.JoinRoom(ctx, id, *p.RoomID)
		if err != nil {
			return err
		}
		if res.Status != coordinator.JoinSuccess {
			h.sess.Write(joinRoomErrorPacket{Type: "join_room_error", RoomID: *p.RoomID, Reason: res.Status.String()})
			return nil
		}
		h.sess.Write(joinRoomAckPacket{Type: "join_room_ack", RoomID: *p.RoomID, Players: res.Players})

	case "leave_room":
		return h.lobby.LeaveRoom(ctx, id)

	case "edit_cosmetics":
		if p.Cosmetics == nil {
			h.sess.WriteError("edit_cosmetics requires cosmetics")
			return nil
		}
		return h.lobby.EditCosmetics(ctx, id, *p.Cosmetics)

	case "start_room":
		if !p.ConnectionType.Valid() {
			h.sess.WriteError(fmt.Sprintf("Invalid connection_type: %q", p.ConnectionType))
			return nil
		}
		return h.lobby.StartRoom(ctx, id, p.ConnectionType)

	case "game_end":
		ack, ok, err := h.lobby.GameEndRequest(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			h.sess.WriteError("Not in a game")
			return nil
		}
		h.sess.Write(gameEndAckPacket{Type: "game_end_ack", Players: ack.Players})

	case "login":
		h.sess.WriteError("Already logged in")

	default:
		h.logger.Debugf("session %s: unknown action %q", h.sess.ID, p.Type)
		h.sess.WriteError(fmt.Sprintf("Unknown action type: %s", p.Type))
	}
	return nil
}

// writePump is the only writer of c. It ends the session when a write fails or when
// the coordinator hands the player to another socket.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, sess *Session, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Replaced():
			flushQueued(ctx, c, sess)
			c.Close(SessionReplacedError, "another connection logged in as this player")
			return
		case f := <-sess.out:
			if err := writeFrame(ctx, c, f); err != nil {
				logger.Warnf("session %s: failed to write to websocket: %v", sess.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				logger.Warnf("session %s: ping failed: %v. Assuming disconnect.", sess.ID, err)
				return
			}
		}
	}
}

// flushQueued writes whatever is already queued, without waiting for more.
func flushQueued(ctx context.Context, c *websocket.Conn, sess *Session) {
	for {
		select {
		case f := <-sess.out:
			if err := writeFrame(ctx, c, f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, f frame) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(writeCtx, f.typ, f.data)
}
