package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/balcaopos/balcao/internal/codec"
	"github.com/balcaopos/balcao/pkg/syncer"
)

// maxBatchBytes caps one push body. Terminals chunk their backlog well
// below this; anything larger is a misbehaving client.
const maxBatchBytes = 8 << 20

func responseCodec(r *http.Request) codec.Codec {
	if accept := r.Header.Get("Accept"); accept != "" && accept != "*/*" {
		return codec.ForContentType(accept)
	}
	return codec.ForContentType(r.Header.Get("Content-Type"))
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	in := codec.ForContentType(r.Header.Get("Content-Type"))
	out := responseCodec(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, out, http.StatusRequestEntityTooLarge, "batch too large, split it into smaller chunks")
			return
		}
		writeDetail(w, out, http.StatusBadRequest, "reading request body failed")
		return
	}

	var batch []syncer.Record
	if err := in.Unmarshal(body, &batch); err != nil {
		writeDetail(w, out, http.StatusBadRequest, "malformed batch")
		return
	}

	res, err := s.gateway.Push(r.Context(), tenant(r), batch)
	if err != nil {
		s.log.Error().Err(err).Int("batch", len(batch)).Msg("push failed")
		writeDetail(w, out, http.StatusServiceUnavailable, "storage unavailable, retry the batch")
		return
	}

	if res.Rejected == nil {
		res.Rejected = []syncer.Rejection{}
	}
	writeBody(w, out, http.StatusOK, res)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	out := responseCodec(r)

	// An unparsable cursor falls back to a full sync rather than failing
	// the call; first-sync clients send nothing at all.
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			since = &ts
		}
	}

	res, err := s.gateway.Pull(r.Context(), tenant(r), since)
	if err != nil {
		s.log.Error().Err(err).Msg("pull failed")
		writeDetail(w, out, http.StatusServiceUnavailable, "storage unavailable, retry later")
		return
	}

	if res.Records == nil {
		res.Records = []syncer.Record{}
	}
	writeBody(w, out, http.StatusOK, res)
}
