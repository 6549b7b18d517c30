package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SnapshotUpdatedData contains data for SnapshotUpdated events
type SnapshotUpdatedData struct {
	Version       uint64 `json:"version"`
	CurrentPeriod int    `json:"current_period"`
	Records       int    `json:"records"`
	Alerts        int    `json:"alerts"`
	Loading       bool   `json:"loading"`
	Error         string `json:"error,omitempty"`
}

// EventType returns the event type for SnapshotUpdatedData
func (d *SnapshotUpdatedData) EventType() EventType {
	return SnapshotUpdated
}

// SyncStartedData contains data for SyncStarted events
type SyncStartedData struct {
	RunID string `json:"run_id"`
}

// EventType returns the event type for SyncStartedData
func (d *SyncStartedData) EventType() EventType {
	return SyncStarted
}

// SyncStoppedData contains data for SyncStopped events
type SyncStoppedData struct {
	RunID      string `json:"run_id"`
	Reason     string `json:"reason"`
	LastPeriod int    `json:"last_period"`
	Refreshes  int    `json:"refreshes"`
	Error      string `json:"error,omitempty"`
}

// EventType returns the event type for SyncStoppedData
func (d *SyncStoppedData) EventType() EventType {
	return SyncStopped
}

// SyncErrorData contains data for SyncError events
type SyncErrorData struct {
	RunID     string `json:"run_id,omitempty"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
	Transient bool   `json:"transient"`
}

// EventType returns the event type for SyncErrorData
func (d *SyncErrorData) EventType() EventType {
	return SyncError
}

// SelectionChangedData contains data for SelectionChanged events
type SelectionChangedData struct {
	Index  int    `json:"index"`
	Period string `json:"period"`
}

// EventType returns the event type for SelectionChangedData
func (d *SelectionChangedData) EventType() EventType {
	return SelectionChanged
}

// PeriodsResetData contains data for PeriodsReset events
type PeriodsResetData struct {
	PreviousPeriod int `json:"previous_period"`
}

// EventType returns the event type for PeriodsResetData
func (d *PeriodsResetData) EventType() EventType {
	return PeriodsReset
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Archive   string `json:"archive"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}
