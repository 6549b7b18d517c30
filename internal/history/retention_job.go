package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob removes snapshots older than the retention window.
// It is scheduled daily.
type RetentionJob struct {
	repo      *Repository
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionJob creates a job keeping retentionDays of history
func NewRetentionJob(repo *Repository, retentionDays int, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log.With().Str("job", "history_retention").Logger(),
	}
}

// Run deletes expired snapshots
func (j *RetentionJob) Run() error {
	cutoff := j.now().Add(-j.retention)

	deleted, err := j.repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired snapshots")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Snapshot history cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging
func (j *RetentionJob) Name() string {
	return "history_retention"
}
