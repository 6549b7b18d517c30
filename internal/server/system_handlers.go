package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/roi-tracker/internal/database"
	"github.com/aristath/roi-tracker/internal/periodsync"
)

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status         string            `json:"status"`
	CPUPercent     float64           `json:"cpu_percent"`
	RAMPercent     float64           `json:"ram_percent"`
	Goroutines     int               `json:"goroutines"`
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Sync           periodsync.Status `json:"sync"`
	HistoryDB      *database.Stats   `json:"history_db,omitempty"`
	BackupsEnabled bool              `json:"backups_enabled"`
}

// SystemHandlers serves host and maintenance endpoints
type SystemHandlers struct {
	sync      SyncController
	backups   Backups
	historyDB *database.DB
	startedAt time.Time
	stats     func() (float64, float64)
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers. backups and historyDB may be nil.
func NewSystemHandlers(sync SyncController, backups Backups, historyDB *database.DB, startedAt time.Time, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		sync:      sync,
		backups:   backups,
		historyDB: historyDB,
		startedAt: startedAt,
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
	h.stats = h.getSystemStats
	return h
}

// HandleSystemStatus reports host load, sync state and database size
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.stats()

	resp := SystemStatusResponse{
		Status:         "healthy",
		CPUPercent:     cpuPercent,
		RAMPercent:     ramPercent,
		Goroutines:     runtime.NumGoroutine(),
		UptimeSeconds:  int64(time.Since(h.startedAt).Seconds()),
		Sync:           h.sync.Status(),
		BackupsEnabled: h.backups != nil && h.backups.Enabled(),
	}

	if h.historyDB != nil {
		stats, err := h.historyDB.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read history database stats")
		} else {
			resp.HistoryDB = stats
		}
	}

	if resp.Sync.Error != "" {
		resp.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleTriggerBackup runs a backup immediately
// POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil || !h.backups.Enabled() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}

	info, err := h.backups.CreateAndUpload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// HandleListBackups lists stored archives, newest first
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil || !h.backups.Enabled() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups, "count": len(backups)})
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, h.log)
}
