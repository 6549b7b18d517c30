// Package periodsync drives the backend through its periods and keeps the
// dashboard snapshot in step with it.
package periodsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/roi-tracker/internal/clients/roiapi"
	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/domain"
	"github.com/aristath/roi-tracker/internal/events"
)

var (
	// ErrAlreadyRunning is returned by Run when a loop is active
	ErrAlreadyRunning = errors.New("sync loop already running")
	// ErrResetFailed wraps a failed reset request
	ErrResetFailed = errors.New("failed to reset periods")
)

// Backend is the subset of the ROI API the poller drives
type Backend interface {
	NextPeriod(ctx context.Context) (int, error)
	GetROI(ctx context.Context) (*domain.ROIResponse, error)
	ResetPeriods(ctx context.Context) error
}

// Recorder persists snapshots after each successful refresh
type Recorder interface {
	Record(ctx context.Context, runID string, snap *dashboard.Snapshot) error
}

// Config tunes the loop
type Config struct {
	Interval       time.Duration // wait after each refresh
	AdvanceRetries int           // retries of a transient advance failure within one cycle
	RetryDelay     time.Duration
}

// Status describes the poller for status endpoints
type Status struct {
	Running       bool                 `json:"running"`
	RunID         string               `json:"run_id,omitempty"`
	CurrentPeriod int                  `json:"current_period"`
	StopReason    dashboard.StopReason `json:"stop_reason,omitempty"`
	Error         string               `json:"error,omitempty"`
	Interval      string               `json:"interval"`
}

// Poller owns the single sync loop
type Poller struct {
	backend  Backend
	store    *dashboard.Store
	recorder Recorder
	bus      *events.Bus
	cfg      Config
	log      zerolog.Logger

	opMu   sync.Mutex // serialises Start, Stop and Reset
	mu     sync.Mutex // guards the fields below
	cancel context.CancelFunc
	done   chan struct{}
	runID  string
}

// NewPoller creates a poller. recorder and bus may be nil.
func NewPoller(backend Backend, store *dashboard.Store, recorder Recorder, bus *events.Bus, cfg Config, log zerolog.Logger) *Poller {
	return &Poller{
		backend:  backend,
		store:    store,
		recorder: recorder,
		bus:      bus,
		cfg:      cfg,
		log:      log.With().Str("component", "period_sync").Logger(),
	}
}

// Advance requests the next period and classifies the answer against last.
// Transient failures are retried up to cfg.AdvanceRetries times before
// giving up with TransientError.
func (p *Poller) Advance(ctx context.Context, last int) AdvanceResult {
	for attempt := 1; ; attempt++ {
		period, err := p.backend.NextPeriod(ctx)
		if err == nil {
			if period == last {
				return AdvanceResult{Outcome: Exhausted, Period: period, Attempts: attempt}
			}
			return AdvanceResult{Outcome: Advanced, Period: period, Attempts: attempt}
		}

		if ctx.Err() != nil {
			return AdvanceResult{Outcome: Cancelled, Attempts: attempt, Err: ctx.Err()}
		}

		if !roiapi.IsTransient(err) {
			return AdvanceResult{Outcome: Failed, Attempts: attempt, Err: err}
		}

		p.bus.Emit("periodsync", &events.SyncErrorData{
			RunID:     p.currentRunID(),
			Operation: "advance",
			Error:     err.Error(),
			Transient: true,
		})

		if attempt > p.cfg.AdvanceRetries {
			return AdvanceResult{Outcome: TransientError, Attempts: attempt, Err: err}
		}

		p.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", p.cfg.AdvanceRetries).
			Msg("Advance failed, retrying")

		if err := sleep(ctx, p.cfg.RetryDelay); err != nil {
			return AdvanceResult{Outcome: Cancelled, Attempts: attempt, Err: err}
		}
	}
}

// Refresh fetches the full snapshot and replaces the view state with it.
// On failure the error is surfaced on the snapshot and prior data is kept.
func (p *Poller) Refresh(ctx context.Context) error {
	resp, err := p.backend.GetROI(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Error().Err(err).Msg("Failed to fetch ROI data")
		p.store.SetError(fmt.Sprintf("Failed to fetch ROI data: %v", err))
		p.bus.Emit("periodsync", &events.SyncErrorData{
			RunID:     p.currentRunID(),
			Operation: "refresh",
			Error:     err.Error(),
			Transient: roiapi.IsTransient(err),
		})
		return err
	}

	snap := p.store.ApplyROI(resp)
	p.log.Info().
		Int("current_period", snap.CurrentPeriod).
		Int("records", len(snap.Records)).
		Int("alerts", len(snap.Alerts)).
		Msg("Snapshot refreshed")

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, snap.RunID, snap); err != nil {
			p.log.Warn().Err(err).Msg("Failed to record snapshot history")
		}
	}
	return nil
}

// Start launches the loop in the background unless one is already active.
// The loop is detached from ctx cancellation; Stop and Reset end it.
func (p *Poller) Start(ctx context.Context) (string, bool) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if p.Running() {
		return p.currentRunID(), false
	}
	return p.startLocked(ctx), true
}

// Run starts the loop and blocks until it ends, returning why it stopped
func (p *Poller) Run(ctx context.Context) (dashboard.StopReason, error) {
	p.opMu.Lock()
	if p.Running() {
		p.opMu.Unlock()
		return dashboard.StopNone, ErrAlreadyRunning
	}
	p.startLocked(ctx)
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	p.opMu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	return p.store.Current().StopReason, nil
}

// Stop cancels the active loop and waits for it to exit
func (p *Poller) Stop() {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	p.stopLocked()
}

// Reset stops any active loop, resets the backend counter, clears the view
// state and starts a fresh loop. When the backend answers with an error
// status the replay still happens and the error stays on the snapshot. When
// the request never gets an answer the state is left as it was and no loop
// is started. Either failure is returned wrapped in ErrResetFailed.
func (p *Poller) Reset(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.stopLocked()

	err := p.backend.ResetPeriods(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to reset periods")
		p.bus.Emit("periodsync", &events.SyncErrorData{
			Operation: "reset",
			Error:     err.Error(),
			Transient: roiapi.IsTransient(err),
		})

		var statusErr *roiapi.StatusError
		if !errors.As(err, &statusErr) {
			p.store.SetError(fmt.Sprintf("Failed to reset periods: %v", err))
			return fmt.Errorf("%w: %v", ErrResetFailed, err)
		}
	}

	previous := p.store.Current().CurrentPeriod
	p.store.Clear()
	if err != nil {
		p.store.SetError(fmt.Sprintf("Failed to reset periods: %v", err))
	}
	p.bus.Emit("periodsync", &events.PeriodsResetData{PreviousPeriod: previous})
	p.log.Info().Int("previous_period", previous).Msg("Periods reset, replaying")

	p.startLocked(ctx)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	return nil
}

// Running reports whether a loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Status reports the loop state for status endpoints
func (p *Poller) Status() Status {
	snap := p.store.Current()
	return Status{
		Running:       p.Running(),
		RunID:         snap.RunID,
		CurrentPeriod: snap.CurrentPeriod,
		StopReason:    snap.StopReason,
		Error:         snap.Error,
		Interval:      p.cfg.Interval.String(),
	}
}

func (p *Poller) currentRunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

func (p *Poller) startLocked(parent context.Context) string {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	runID := uuid.NewString()
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.runID = runID
	p.mu.Unlock()

	p.store.BeginRun(runID)
	p.bus.Emit("periodsync", &events.SyncStartedData{RunID: runID})

	go func() {
		defer close(done)
		defer cancel()
		p.loop(ctx, runID)
	}()
	return runID
}

func (p *Poller) stopLocked() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// loop advances until the backend stops moving. The cursor starts at 0, so a
// backend that answers 0 on the first call ends the run without a refresh.
func (p *Poller) loop(ctx context.Context, runID string) {
	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().Dur("interval", p.cfg.Interval).Msg("Sync loop started")

	last := 0
	refreshes := 0
	var reason dashboard.StopReason
	var errMessage string

	for reason == dashboard.StopNone {
		result := p.Advance(ctx, last)

		switch result.Outcome {
		case Advanced:
			log.Debug().Int("period", result.Period).Int("attempts", result.Attempts).Msg("Backend advanced")
			if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Refresh failed, continuing")
			}
			refreshes++
			last = result.Period
			if err := sleep(ctx, p.cfg.Interval); err != nil {
				reason = dashboard.StopCancelled
			}
		case Exhausted:
			reason = dashboard.StopCompleted
		case Cancelled:
			reason = dashboard.StopCancelled
		default:
			reason = dashboard.StopFailed
			errMessage = fmt.Sprintf("Failed to advance period: %v", result.Err)
		}
	}

	p.store.FinishRun(reason, errMessage)

	stopped := &events.SyncStoppedData{
		RunID:      runID,
		Reason:     string(reason),
		LastPeriod: last,
		Refreshes:  refreshes,
	}
	if errMessage != "" {
		stopped.Error = errMessage
	}
	p.bus.Emit("periodsync", stopped)

	log.Info().
		Str("reason", string(reason)).
		Int("last_period", last).
		Int("refreshes", refreshes).
		Msg("Sync loop stopped")
}

// sleep waits for d or until ctx ends
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
