package scheduler

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/roi-tracker/internal/database"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
	assert.Equal(t, 0, s.JobCount())
}

func TestAddJob_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))
	assert.Equal(t, 1, s.JobCount())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, int32(1), job.runs.Load())

	// failures inside scheduled runs are logged, not propagated
	s.run(job)
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestWALCheckpointJob(t *testing.T) {
	job := NewWALCheckpointJob(nil, zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "history.db"), Name: "history"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	assert.NoError(t, NewWALCheckpointJob(db, zerolog.Nop()).Run())
}
