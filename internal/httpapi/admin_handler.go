package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/balcaopos/balcao/internal/codec"
)

type purgeRequest struct {
	Kinds []string `json:"kinds"`
}

// handlePurge destructively removes whole entity kinds for the tenant.
// Privileged callers only; the sync path has no route here.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	out := codec.JSON{}

	if s.adminToken == "" {
		writeDetail(w, out, http.StatusForbidden, "administrative purge is disabled")
		return
	}
	token := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		writeDetail(w, out, http.StatusUnauthorized, "invalid admin token")
		return
	}

	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Kinds) == 0 {
		writeDetail(w, out, http.StatusBadRequest, "kinds must name at least one entity kind")
		return
	}

	removed, err := s.purger.Purge(r.Context(), tenant(r), req.Kinds)
	if err != nil {
		s.log.Error().Err(err).Strs("kinds", req.Kinds).Msg("purge failed")
		writeDetail(w, out, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	s.log.Info().Strs("kinds", req.Kinds).Int64("removed", removed).Msg("administrative purge")
	writeBody(w, out, http.StatusOK, map[string]any{"removed": removed})
}
