package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/domain"
)

const testSchema = `
CREATE TABLE snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	current_period INTEGER NOT NULL,
	record_count INTEGER NOT NULL,
	alert_count INTEGER NOT NULL,
	latest_roi REAL,
	payload BLOB NOT NULL,
	recorded_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot(version uint64, periods int) *dashboard.Snapshot {
	snap := &dashboard.Snapshot{
		Version:       version,
		CurrentPeriod: periods,
		Selected:      periods - 1,
		Alerts: []domain.Alert{
			{Type: domain.SeverityWarning, Message: "ACH costs rising", Timestamp: "2024-03-01T10:15:30"},
		},
	}
	for i := 0; i < periods; i++ {
		snap.Records = append(snap.Records, domain.ROIRecord{
			Period:   "Period " + string(rune('1'+i)),
			ROI:      float64(-1000 + i*250),
			Forecast: float64(-900 + i*250),
			RawNumbers: domain.RawNumbers{
				SubscriptionCost: 5000,
				PeriodSavings:    250,
			},
		})
	}
	return snap
}

func TestRecordAndLatest(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.Record(ctx, "run-1", testSnapshot(3, 2)))
	require.NoError(t, repo.Record(ctx, "run-1", testSnapshot(5, 3)))

	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)

	assert.Equal(t, "run-1", latest.RunID)
	assert.Equal(t, uint64(5), latest.Version)
	assert.Equal(t, 3, latest.CurrentPeriod)
	assert.Equal(t, 3, latest.RecordCount)
	assert.Equal(t, 1, latest.AlertCount)
	require.NotNil(t, latest.LatestROI)
	assert.Equal(t, -500.0, *latest.LatestROI)

	assert.Equal(t, testSnapshot(5, 3).Records, latest.Records)
	assert.Equal(t, testSnapshot(5, 3).Alerts, latest.Alerts)
}

func TestRecord_EmptySnapshot(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, "run-2", &dashboard.Snapshot{}))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Nil(t, latest.LatestROI)
	assert.Empty(t, latest.Records)
}

func TestList(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Record(ctx, "run-1", testSnapshot(uint64(i), i)))
	}

	entries, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(5), entries[0].Version)
	assert.Equal(t, uint64(3), entries[2].Version)
	assert.Nil(t, entries[0].Records)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := base.AddDate(0, 0, i*10)
		repo.now = func() time.Time { return at }
		require.NoError(t, repo.Record(ctx, "run-1", testSnapshot(uint64(i+1), 1)))
	}

	deleted, err := repo.DeleteOlderThan(ctx, base.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRetentionJob(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now.AddDate(0, 0, -45) }
	require.NoError(t, repo.Record(ctx, "old", testSnapshot(1, 1)))
	repo.now = func() time.Time { return now.AddDate(0, 0, -1) }
	require.NoError(t, repo.Record(ctx, "recent", testSnapshot(2, 1)))

	job := NewRetentionJob(repo, 30, zerolog.Nop())
	job.now = func() time.Time { return now }
	assert.Equal(t, "history_retention", job.Name())

	require.NoError(t, job.Run())

	entries, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].RunID)
}
