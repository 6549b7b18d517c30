package server

import (
	"errors"
	"net/http"

	"github.com/aristath/roi-tracker/internal/periodsync"
)

// handleSyncStart starts the sync loop if it is idle
// POST /api/sync/start
func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	runID, started := s.sync.Start(r.Context())
	status := http.StatusAccepted
	if !started {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]interface{}{
		"run_id":  runID,
		"started": started,
	})
}

// handleSyncReset resets the backend and replays from the start
// POST /api/sync/reset
func (s *Server) handleSyncReset(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.Reset(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, periodsync.ErrResetFailed) {
			status = http.StatusBadGateway
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.sync.Status())
}

// handleSyncStatus reports the loop state
// GET /api/sync/status
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sync.Status())
}
