package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/roi-tracker/internal/database"
)

// BackupJob runs a backup followed by rotation
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, retentionDays int) *BackupJob {
	return &BackupJob{service: service, retentionDays: retentionDays, timeout: 10 * time.Minute}
}

// Name returns the job name for scheduling and logging
func (j *BackupJob) Name() string {
	return "backup"
}

// Run uploads a fresh archive and rotates old ones
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}
	_, err := j.service.RotateOldBackups(ctx, j.retentionDays)
	return err
}

// Disk space thresholds for MaintenanceJob
const (
	criticalFreeBytes = 500 << 20
	lowFreeBytes      = 5 << 30
)

// MaintenanceJob checks database integrity and free disk space
type MaintenanceJob struct {
	db      *database.DB
	dataDir string
	usage   func(path string) (*disk.UsageStat, error)
	log     zerolog.Logger
}

// NewMaintenanceJob creates the daily maintenance job
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		dataDir: dataDir,
		usage:   disk.Usage,
		log:     log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduling and logging
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance checks
func (j *MaintenanceJob) Run() error {
	if j.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := j.db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", j.db.Name()).Msg("Database health check failed")
			return err
		}
	}
	return j.checkDiskSpace()
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage: %w", err)
	}

	free := usage.Free
	log := j.log.With().Uint64("free_bytes", free).Float64("used_percent", usage.UsedPercent).Logger()

	switch {
	case free < criticalFreeBytes:
		log.Error().Msg("Insufficient disk space")
		return fmt.Errorf("only %d MB free in %s", free>>20, j.dataDir)
	case free < lowFreeBytes:
		log.Warn().Msg("Disk space running low")
	default:
		log.Debug().Msg("Disk space check")
	}
	return nil
}
