package server

import (
	"net/http"
	"strconv"

	"github.com/aristath/roi-tracker/internal/history"
)

const maxHistoryLimit = 500

// handleHistoryList returns recent snapshot summaries
// GET /api/history?limit=N
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	limit := history.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list history")
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleHistoryLatest returns the newest snapshot with its records
// GET /api/history/latest
func (s *Server) handleHistoryLatest(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	entry, err := s.history.Latest(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest history entry")
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if entry == nil {
		s.writeError(w, http.StatusNotFound, "no history recorded")
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}
