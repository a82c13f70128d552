package api

import (
	"net/http"
	"strconv"
)

// handleJournal returns recent parameter-change history, newest first.
//
// Query parameters:
//   - limit: maximum entries (repository clamps bounds)
//   - address: filter to a single OSC address
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "journal is not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	address := r.URL.Query().Get("address")

	entries, err := s.journal.Recent(r.Context(), address, limit)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
