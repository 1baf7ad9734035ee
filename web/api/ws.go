package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// wsHandler pushes the run status to websocket clients: once on connect,
// then after every round and when the run finishes
func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := s.sseHub.Subscribe()
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.sseHub.Unsubscribe(client)
			s.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		// the read loop only notices the peer going away
		go func() {
			defer s.sseHub.Unsubscribe(client)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						s.logger.Debug().Err(err).Msg("websocket read error")
					}
					return
				}
			}
		}()

		if err := writeWS(conn, SSEEvent{Type: "status", Data: s.feed.Status()}); err != nil {
			return
		}

		for event := range client {
			if event.Type != EventRound && event.Type != EventFinished {
				continue
			}
			if err := writeWS(conn, event); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
			time.Now().Add(time.Second))
	}
}

func writeWS(conn *websocket.Conn, event SSEEvent) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(event)
}
