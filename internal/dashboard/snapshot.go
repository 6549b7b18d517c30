// Package dashboard holds the view state rendered by dashboard clients.
//
// All state lives in one immutable Snapshot. Writers build a modified copy
// and publish it atomically, so readers never observe a partially updated
// view (records from one fetch next to alerts from another).
package dashboard

import (
	"time"

	"github.com/aristath/roi-tracker/internal/domain"
)

// NoSelection marks a snapshot with no inspected record
const NoSelection = -1

// StopReason records why the last sync loop ended
type StopReason string

const (
	StopNone      StopReason = ""
	StopCompleted StopReason = "completed" // backend stopped advancing
	StopFailed    StopReason = "failed"    // advance failed after retries
	StopCancelled StopReason = "cancelled" // loop cancelled by reset or shutdown
)

// Snapshot is one immutable version of the view state.
// Callers must treat the slices as read-only.
type Snapshot struct {
	Records       []domain.ROIRecord `json:"results"`
	Alerts        []domain.Alert     `json:"alerts"`
	CurrentPeriod int                `json:"current_period"`
	Selected      int                `json:"selected"`
	Loading       bool               `json:"loading"`
	Error         string             `json:"error,omitempty"`
	StopReason    StopReason         `json:"stop_reason,omitempty"`
	RunID         string             `json:"run_id,omitempty"`
	Version       uint64             `json:"version"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Selection returns the currently inspected record
func (s *Snapshot) Selection() (domain.ROIRecord, bool) {
	if s == nil || s.Selected < 0 || s.Selected >= len(s.Records) {
		return domain.ROIRecord{}, false
	}
	return s.Records[s.Selected], true
}

// Empty reports whether no records have been received
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Records) == 0
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Records:  []domain.ROIRecord{},
		Alerts:   []domain.Alert{},
		Selected: NoSelection,
	}
}
