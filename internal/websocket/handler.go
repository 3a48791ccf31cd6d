package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/welfare/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client of the request's session. Cross-origin upgrades are rejected.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := auth.SessionID(r.Context())
		if sessionID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		// The server's read and write timeouts would otherwise cut the
		// long-lived connection.
		rc := http.NewResponseController(w)
		rc.SetReadDeadline(time.Time{})
		rc.SetWriteDeadline(time.Time{})

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, sessionID).Run(r.Context())
	}
}
