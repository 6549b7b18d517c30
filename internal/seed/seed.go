// Package seed loads the bundled sample transaction dataset into the ROI backend.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/aristath/roi-tracker/internal/domain"
)

//go:embed periods.json
var periodsJSON []byte

// Sample dataset constants
const (
	AvgCCTxAmount  = 5999.0
	AvgACHTxAmount = 29523.0
	CCRate         = 3.2
	ConvFee        = 2.5
)

// ErrBackendUnavailable is returned when the backend never reports healthy
var ErrBackendUnavailable = errors.New("backend failed to become available")

// Period is one row of raw transaction volumes
type Period struct {
	Period    string  `json:"period"`
	CCVolume  float64 `json:"cc_volume"`
	ACHVolume float64 `json:"ach_volume"`
}

// Input derives transaction counts from the average transaction amounts
func (p Period) Input() domain.PeriodInput {
	return domain.PeriodInput{
		Period:    p.Period,
		CCVolume:  p.CCVolume,
		CCCount:   int(p.CCVolume / AvgCCTxAmount),
		ACHVolume: p.ACHVolume,
		ACHCount:  int(p.ACHVolume / AvgACHTxAmount),
		CCRate:    CCRate,
		ConvFee:   ConvFee,
	}
}

// Periods returns the bundled dataset in load order
func Periods() ([]Period, error) {
	var periods []Period
	if err := json.Unmarshal(periodsJSON, &periods); err != nil {
		return nil, fmt.Errorf("failed to parse bundled periods: %w", err)
	}
	return periods, nil
}

// Backend is the subset of the ROI API the loader needs
type Backend interface {
	Health(ctx context.Context) error
	DeleteAllPeriods(ctx context.Context) error
	AddPeriod(ctx context.Context, period domain.PeriodInput) error
}

// Options controls health polling
type Options struct {
	HealthAttempts int
	HealthDelay    time.Duration
}

// DefaultOptions polls health 30 times, 2s apart
func DefaultOptions() Options {
	return Options{HealthAttempts: 30, HealthDelay: 2 * time.Second}
}

// Result summarises a load
type Result struct {
	Deleted bool     `json:"deleted"`
	Loaded  int      `json:"loaded"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Loader pushes the dataset into the backend
type Loader struct {
	backend Backend
	opts    Options
	log     zerolog.Logger
}

// NewLoader creates a loader
func NewLoader(backend Backend, opts Options, log zerolog.Logger) *Loader {
	if opts.HealthAttempts <= 0 {
		opts.HealthAttempts = 1
	}
	return &Loader{
		backend: backend,
		opts:    opts,
		log:     log.With().Str("component", "seed").Logger(),
	}
}

// WaitForBackend polls the health endpoint until it succeeds or attempts run out
func (l *Loader) WaitForBackend(ctx context.Context) error {
	l.log.Info().Msg("Waiting for backend to become available")

	for attempt := 1; attempt <= l.opts.HealthAttempts; attempt++ {
		err := l.backend.Health(ctx)
		if err == nil {
			l.log.Info().Int("attempt", attempt).Msg("Backend is ready")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", l.opts.HealthAttempts).
			Msg("Backend not ready")

		if attempt == l.opts.HealthAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.HealthDelay):
		}
	}
	return ErrBackendUnavailable
}

// Load waits for the backend, deletes existing periods and posts the dataset.
// A failed delete is logged and loading continues. Individual period failures
// are counted rather than aborting the load.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	var result Result

	periods, err := Periods()
	if err != nil {
		return result, err
	}

	if err := l.WaitForBackend(ctx); err != nil {
		return result, err
	}

	if err := l.backend.DeleteAllPeriods(ctx); err != nil {
		l.log.Warn().Err(err).Msg("Failed to delete existing periods, loading anyway")
	} else {
		result.Deleted = true
		l.log.Info().Msg("Deleted existing periods")
	}

	for _, p := range periods {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if err := l.backend.AddPeriod(ctx, p.Input()); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.Period, err))
			l.log.Error().Err(err).Str("period", p.Period).Msg("Failed to load period")
			continue
		}
		result.Loaded++
		l.log.Debug().Str("period", p.Period).Msg("Loaded period")
	}

	l.log.Info().
		Int("loaded", result.Loaded).
		Int("failed", result.Failed).
		Msg("Data loading complete")

	return result, nil
}
