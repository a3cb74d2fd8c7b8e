package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/home-presence-core/internal/presence"
)

// handlePresence takes a live snapshot: queries the router and reconciles
// against the registry on every call.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	snap, err := s.presence.Snapshot(r.Context())
	if err != nil {
		s.writePresenceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePresenceLast returns the monitor's most recent snapshot without
// touching the router. 404 until the first successful poll, or when the
// background monitor is disabled.
func (s *Server) handlePresenceLast(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		writeNotFound(w, "background monitor disabled")
		return
	}
	snap := s.monitor.Last()
	if snap == nil {
		writeNotFound(w, "no snapshot taken yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writePresenceError maps presence-layer errors to HTTP responses.
func (s *Server) writePresenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, presence.ErrRouterNotConfigured):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "router not configured")
	case errors.Is(err, presence.ErrRouterUnavailable):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "router unavailable")
	default:
		s.logger.Error("presence snapshot failed", "error", err)
		writeInternalError(w, "presence snapshot failed")
	}
}
