// Package events provides an in-process event bus used to fan out sync and
// dashboard changes to streaming clients.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	SnapshotUpdated  EventType = "SNAPSHOT_UPDATED"
	SyncStarted      EventType = "SYNC_STARTED"
	SyncStopped      EventType = "SYNC_STOPPED"
	SyncError        EventType = "SYNC_ERROR"
	SelectionChanged EventType = "SELECTION_CHANGED"
	PeriodsReset     EventType = "PERIODS_RESET"
	BackupCompleted  EventType = "BACKUP_COMPLETED"
)

// AllTypes lists every event type a stream subscriber can receive
var AllTypes = []EventType{
	SnapshotUpdated,
	SyncStarted,
	SyncStopped,
	SyncError,
	SelectionChanged,
	PeriodsReset,
	BackupCompleted,
}

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}
