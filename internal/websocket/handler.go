package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/ewhitmore/upkeep/internal/auth"
)

// Handler returns an HTTP handler that upgrades connections to WebSocket and
// runs them as Hub clients for the authenticated user. It must sit behind
// the auth middleware.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, userID)
		client.Run(r.Context())
	}
}
