package handlers

import (
	"net/http"

	"threadview/internal/websocket"

	ws "github.com/gorilla/websocket"
)

// HandleWebSocket upgrades a viewer connection. Guests may connect; a token,
// if given as ?token= or a bearer header, must be valid.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	upgrader := ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.Auth.Optional(r)
		if err != nil {
			s.logger.Warn("websocket connection rejected", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already written the HTTP error.
			s.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
			return
		}

		client := websocket.NewClient(s.Hub, conn, userID)
		if !s.Hub.Join(client) {
			conn.Close()
			return
		}
		s.logger.Debug("viewer connected", "viewer_id", client.ViewerID, "user_id", userID)

		go client.WritePump()
		go client.ReadPump()
	}
}
