// Package history persists dashboard snapshots after every successful refresh.
// Records and alerts are stored as msgpack blobs next to indexed summary columns.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/domain"
)

// DefaultListLimit caps List when the caller passes a non-positive limit
const DefaultListLimit = 50

// payload is the msgpack-encoded part of a snapshot row
type payload struct {
	Records []domain.ROIRecord `msgpack:"records"`
	Alerts  []domain.Alert     `msgpack:"alerts"`
}

// Entry is one persisted snapshot
type Entry struct {
	ID            int64              `json:"id"`
	RunID         string             `json:"run_id"`
	Version       uint64             `json:"version"`
	CurrentPeriod int                `json:"current_period"`
	RecordCount   int                `json:"record_count"`
	AlertCount    int                `json:"alert_count"`
	LatestROI     *float64           `json:"latest_roi,omitempty"`
	RecordedAt    time.Time          `json:"recorded_at"`
	Records       []domain.ROIRecord `json:"results,omitempty"`
	Alerts        []domain.Alert     `json:"alerts,omitempty"`
}

// Repository stores snapshot history
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Record appends snap to the history
func (r *Repository) Record(ctx context.Context, runID string, snap *dashboard.Snapshot) error {
	blob, err := msgpack.Marshal(payload{Records: snap.Records, Alerts: snap.Alerts})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var latest sql.NullFloat64
	if n := len(snap.Records); n > 0 {
		latest = sql.NullFloat64{Float64: snap.Records[n-1].ROI, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, version, current_period, record_count, alert_count, latest_roi, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(snap.Version), snap.CurrentPeriod, len(snap.Records), len(snap.Alerts), latest, blob, r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first, without payloads
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, version, current_period, record_count, alert_count, latest_roi, recorded_at
		FROM snapshots
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, _, err := scanEntry(rows, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return entries, nil
}

// Latest returns the newest entry with its records and alerts, or nil when empty
func (r *Repository) Latest(ctx context.Context) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, version, current_period, record_count, alert_count, latest_roi, recorded_at, payload
		FROM snapshots
		ORDER BY id DESC
		LIMIT 1`)

	entry, blob, err := scanEntry(row, true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p payload
	if err := msgpack.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %d: %w", entry.ID, err)
	}
	entry.Records = p.Records
	entry.Alerts = p.Alerts
	return &entry, nil
}

// Count returns the number of stored snapshots
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes snapshots recorded before cutoff
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM snapshots WHERE recorded_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner, withPayload bool) (Entry, []byte, error) {
	var (
		entry      Entry
		version    int64
		latest     sql.NullFloat64
		recordedAt int64
		blob       []byte
	)

	dest := []any{
		&entry.ID, &entry.RunID, &version, &entry.CurrentPeriod,
		&entry.RecordCount, &entry.AlertCount, &latest, &recordedAt,
	}
	if withPayload {
		dest = append(dest, &blob)
	}

	if err := s.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, nil, err
		}
		return Entry{}, nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	entry.Version = uint64(version)
	entry.RecordedAt = time.Unix(recordedAt, 0).UTC()
	if latest.Valid {
		v := latest.Float64
		entry.LatestROI = &v
	}
	return entry, blob, nil
}
