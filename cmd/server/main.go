// Package main is the entry point for the ROI tracker service.
// It drives the backend's period counter, keeps the dashboard state current,
// records snapshot history and serves the dashboard API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/roi-tracker/internal/clients/roiapi"
	"github.com/aristath/roi-tracker/internal/config"
	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/database"
	"github.com/aristath/roi-tracker/internal/events"
	"github.com/aristath/roi-tracker/internal/history"
	"github.com/aristath/roi-tracker/internal/periodsync"
	"github.com/aristath/roi-tracker/internal/reliability"
	"github.com/aristath/roi-tracker/internal/scheduler"
	"github.com/aristath/roi-tracker/internal/server"
	"github.com/aristath/roi-tracker/pkg/logger"
)

const walCheckpointSchedule = "0 0 * * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().
		Str("api_url", cfg.APIURL).
		Dur("sync_interval", cfg.SyncInterval).
		Msg("Starting ROI tracker")

	bus := events.NewBus(log)
	store := dashboard.NewStore(bus)
	client := roiapi.NewClient(cfg.APIURL, cfg.APITimeout, log)

	// History is optional: the dashboard works without it
	var (
		historyDB   *database.DB
		historyRepo *history.Repository
	)
	if cfg.HistoryEnabled {
		historyDB, err = database.New(database.Config{
			Path:    cfg.HistoryDBPath(),
			Profile: database.ProfileStandard,
			Name:    "history",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open history database")
		}
		defer historyDB.Close()

		if err := historyDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate history database")
		}
		historyRepo = history.NewRepository(historyDB.Conn())
		log.Info().Str("path", historyDB.Path()).Msg("History database ready")
	}

	var recorder periodsync.Recorder
	if historyRepo != nil {
		recorder = historyRepo
	}

	poller := periodsync.NewPoller(client, store, recorder, bus, periodsync.Config{
		Interval:       cfg.SyncInterval,
		AdvanceRetries: cfg.AdvanceRetries,
		RetryDelay:     cfg.RetryDelay,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backupService := setupBackups(ctx, cfg, historyDB, bus, log)

	sched := scheduler.New(log)
	registerJobs(sched, cfg, historyDB, historyRepo, backupService, log)
	sched.Start()

	srvCfg := server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Store:     store,
		Sync:      poller,
		Bus:       bus,
		HistoryDB: historyDB,
	}
	// Leave the interfaces untyped nil when disabled
	if historyRepo != nil {
		srvCfg.History = historyRepo
	}
	if backupService != nil {
		srvCfg.Backups = backupService
	}
	srv := server.New(srvCfg)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	if cfg.AutoStart {
		runID, _ := poller.Start(ctx)
		log.Info().Str("run_id", runID).Msg("Period sync started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	poller.Stop()
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if historyDB != nil {
		if err := historyDB.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Msg("Final WAL checkpoint failed")
		}
	}

	log.Info().Msg("Server stopped")
}

// setupBackups returns nil when R2 is not configured or there is nothing to back up
func setupBackups(ctx context.Context, cfg *config.Config, historyDB *database.DB, bus *events.Bus, log zerolog.Logger) *reliability.BackupService {
	if historyDB == nil || !cfg.Backup.Enabled() {
		log.Info().Msg("Off-site backups disabled")
		return nil
	}

	r2, err := reliability.NewR2Client(ctx, cfg.Backup, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create R2 client, backups disabled")
		return nil
	}
	return reliability.NewBackupService(historyDB, r2, cfg.DataDir, bus, log)
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	historyDB *database.DB,
	historyRepo *history.Repository,
	backups *reliability.BackupService,
	log zerolog.Logger,
) {
	add := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Error().Err(err).Str("job", job.Name()).Msg("Failed to schedule job")
		}
	}

	add(cfg.MaintenanceSchedule, reliability.NewMaintenanceJob(historyDB, cfg.DataDir, log))

	if historyRepo != nil && cfg.HistoryRetention > 0 {
		add(cfg.RetentionSchedule, history.NewRetentionJob(historyRepo, cfg.HistoryRetention, log))
	}
	if historyDB != nil {
		add(walCheckpointSchedule, scheduler.NewWALCheckpointJob(historyDB, log))
	}
	if backups != nil && cfg.BackupSchedule != "" {
		add(cfg.BackupSchedule, reliability.NewBackupJob(backups, cfg.Backup.RetentionDays))
	}

	log.Info().Int("jobs", sched.JobCount()).Msg("Scheduler configured")
}
