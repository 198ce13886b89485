package httpapi

import (
	"net/http"

	"github.com/balcaopos/balcao/pkg/realtime"
)

// handleWS upgrades the connection and registers it with the hub.
// Registration and deregistration are implicit in connect/disconnect;
// the read loop only keeps the connection alive and consumes client
// pings, as terminals never send business data this way.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	obs := realtime.NewWebSocketObserver(conn, realtime.WithSendTimeout(s.sendTimeout))
	s.hub.Register(obs)
	s.log.Info().Str("handle", obs.Handle()).Str("remote", r.RemoteAddr).Msg("terminal connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(obs.Handle())
	_ = conn.Close()
	s.log.Info().Str("handle", obs.Handle()).Msg("terminal disconnected")
}
