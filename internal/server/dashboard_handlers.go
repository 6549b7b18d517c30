package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/modules/charts"
)

// handleDashboard returns the full view: alerts, chart, detail and outlook
// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, charts.BuildView(s.store.Current()))
}

// handleChart returns the chart series only
// GET /api/dashboard/chart
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	s.writeJSON(w, http.StatusOK, charts.BuildChart(snap.Records, snap.Selected))
}

// handleDetail returns the detail panel for the inspected record
// GET /api/dashboard/detail
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	record, ok := snap.Selection()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no record selected")
		return
	}
	s.writeJSON(w, http.StatusOK, charts.BuildDetail(record, snap.Selected))
}

// handleSelect makes chart point {index} the inspected record
// POST /api/dashboard/select/{index}
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	record, err := s.store.Select(index)
	if errors.Is(err, dashboard.ErrSelectionOutOfRange) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, charts.BuildDetail(record, index))
}
