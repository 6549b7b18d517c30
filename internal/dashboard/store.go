package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/roi-tracker/internal/domain"
	"github.com/aristath/roi-tracker/internal/events"
)

// ErrSelectionOutOfRange is returned when selecting an index outside the current records
var ErrSelectionOutOfRange = errors.New("selection index out of range")

// Store owns the dashboard snapshot. Writers are serialised; reads are lock-free.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	bus     *events.Bus
	now     func() time.Time
}

// NewStore creates a store holding an empty snapshot. bus may be nil.
func NewStore(bus *events.Bus) *Store {
	s := &Store{bus: bus, now: time.Now}
	s.current.Store(emptySnapshot())
	return s
}

// Current returns the latest snapshot
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// update copies the current snapshot, applies fn and publishes the result
func (s *Store) update(fn func(next *Snapshot) error) (*Snapshot, error) {
	s.mu.Lock()
	prev := s.current.Load()
	next := *prev
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return prev, err
	}
	next.Version = prev.Version + 1
	next.UpdatedAt = s.now()
	s.current.Store(&next)
	s.mu.Unlock()

	s.bus.Emit("dashboard", &events.SnapshotUpdatedData{
		Version:       next.Version,
		CurrentPeriod: next.CurrentPeriod,
		Records:       len(next.Records),
		Alerts:        len(next.Alerts),
		Loading:       next.Loading,
		Error:         next.Error,
	})
	return &next, nil
}

// ApplyROI replaces records, alerts and cursor with a fresh backend response
// and selects the most recent record. Prior data is discarded, never merged.
func (s *Store) ApplyROI(resp *domain.ROIResponse) *Snapshot {
	records := append([]domain.ROIRecord(nil), resp.Results...)
	if records == nil {
		records = []domain.ROIRecord{}
	}
	alerts := append([]domain.Alert(nil), resp.Alerts...)
	if alerts == nil {
		alerts = []domain.Alert{}
	}

	snap, _ := s.update(func(next *Snapshot) error {
		next.Records = records
		next.Alerts = alerts
		next.CurrentPeriod = resp.CurrentPeriod
		next.Error = ""
		if len(records) > 0 {
			next.Selected = len(records) - 1
		} else {
			next.Selected = NoSelection
		}
		return nil
	})
	return snap
}

// SetError records a user-visible error without touching the data
func (s *Store) SetError(message string) *Snapshot {
	snap, _ := s.update(func(next *Snapshot) error {
		next.Error = message
		return nil
	})
	return snap
}

// BeginRun marks a sync loop as active
func (s *Store) BeginRun(runID string) *Snapshot {
	snap, _ := s.update(func(next *Snapshot) error {
		next.Loading = true
		next.RunID = runID
		next.StopReason = StopNone
		return nil
	})
	return snap
}

// FinishRun clears the loading flag and records why the loop ended.
// A non-empty errMessage replaces the current error.
func (s *Store) FinishRun(reason StopReason, errMessage string) *Snapshot {
	snap, _ := s.update(func(next *Snapshot) error {
		next.Loading = false
		next.StopReason = reason
		if errMessage != "" {
			next.Error = errMessage
		}
		return nil
	})
	return snap
}

// Select makes records[index] of the latest snapshot the inspected record
func (s *Store) Select(index int) (domain.ROIRecord, error) {
	snap, err := s.update(func(next *Snapshot) error {
		if index < 0 || index >= len(next.Records) {
			return fmt.Errorf("%w: %d (have %d records)", ErrSelectionOutOfRange, index, len(next.Records))
		}
		next.Selected = index
		return nil
	})
	if err != nil {
		return domain.ROIRecord{}, err
	}

	record, _ := snap.Selection()
	s.bus.Emit("dashboard", &events.SelectionChangedData{Index: index, Period: record.Period})
	return record, nil
}

// Clear empties records, alerts, selection, cursor and error
func (s *Store) Clear() *Snapshot {
	snap, _ := s.update(func(next *Snapshot) error {
		next.Records = []domain.ROIRecord{}
		next.Alerts = []domain.Alert{}
		next.Selected = NoSelection
		next.CurrentPeriod = 0
		next.Error = ""
		next.StopReason = StopNone
		return nil
	})
	return snap
}
