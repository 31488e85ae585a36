// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/lobbyrelay/internal/auth"
	"github.com/jason-s-yu/lobbyrelay/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the HTTP surface: a ping, coordinator stats and the lobby socket.
func NewRouter(logger *logrus.Logger, lobby Lobby, tokens *auth.Tokens, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/", PingHandler)
	r.Get("/stats", StatsHandler(logger, lobby))
	r.Get("/ws", LobbyWSHandler(logger, lobby, tokens, opts))
	return r
}

// PingHandler answers liveness checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// StatsHandler reports the coordinator's player and room counts.
func StatsHandler(logger *logrus.Logger, lobby Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := lobby.Stats(r.Context())
		if err != nil {
			logger.Warnf("stats unavailable: %v", err)
			http.Error(w, "coordinator unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}
