// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the lobby socket.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError     websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	LoginRequiredError      websocket.StatusCode = 3001 // First packet was missing, late or not a valid login.
	SessionReplacedError    websocket.StatusCode = 3002 // Another socket logged in as the same player.
	ServiceUnavailableError websocket.StatusCode = 3003 // The coordinator stopped; the server is shutting down.
)
