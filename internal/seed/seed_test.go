package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/roi-tracker/internal/clients/roiapi"
	"github.com/aristath/roi-tracker/internal/domain"
)

func TestPeriods(t *testing.T) {
	periods, err := Periods()
	require.NoError(t, err)
	require.Len(t, periods, 24)

	assert.Equal(t, "Period 1", periods[0].Period)
	assert.Equal(t, 2749080.24, periods[0].CCVolume)
	assert.Equal(t, 1684104.98, periods[0].ACHVolume)
	assert.Equal(t, "Period 24", periods[23].Period)
}

func TestPeriodInput(t *testing.T) {
	in := Period{Period: "Period 1", CCVolume: 2749080.24, ACHVolume: 1684104.98}.Input()

	assert.Equal(t, 458, in.CCCount)
	assert.Equal(t, 57, in.ACHCount)
	assert.Equal(t, 3.2, in.CCRate)
	assert.Equal(t, 2.5, in.ConvFee)
}

type fakeBackend struct {
	healthFailures int32
	healthCalls    atomic.Int32
	deleteErr      error
	failPeriod     string

	mu    sync.Mutex
	added []domain.PeriodInput
}

func (f *fakeBackend) Health(context.Context) error {
	if f.healthCalls.Add(1) <= f.healthFailures {
		return &roiapi.StatusError{StatusCode: http.StatusServiceUnavailable}
	}
	return nil
}

func (f *fakeBackend) DeleteAllPeriods(context.Context) error { return f.deleteErr }

func (f *fakeBackend) AddPeriod(_ context.Context, p domain.PeriodInput) error {
	if p.Period == f.failPeriod {
		return &roiapi.StatusError{StatusCode: http.StatusUnprocessableEntity}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, p)
	return nil
}

func fastOptions() Options {
	return Options{HealthAttempts: 3, HealthDelay: time.Millisecond}
}

func TestWaitForBackend(t *testing.T) {
	t.Run("becomes ready", func(t *testing.T) {
		backend := &fakeBackend{healthFailures: 2}
		err := NewLoader(backend, fastOptions(), zerolog.Nop()).WaitForBackend(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(3), backend.healthCalls.Load())
	})

	t.Run("gives up", func(t *testing.T) {
		backend := &fakeBackend{healthFailures: 10}
		err := NewLoader(backend, fastOptions(), zerolog.Nop()).WaitForBackend(context.Background())
		assert.ErrorIs(t, err, ErrBackendUnavailable)
		assert.Equal(t, int32(3), backend.healthCalls.Load())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		backend := &fakeBackend{healthFailures: 10}
		opts := Options{HealthAttempts: 5, HealthDelay: time.Hour}
		err := NewLoader(backend, opts, zerolog.Nop()).WaitForBackend(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoad(t *testing.T) {
	backend := &fakeBackend{failPeriod: "Period 5"}

	result, err := NewLoader(backend, fastOptions(), zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Deleted)
	assert.Equal(t, 23, result.Loaded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Period 5")
	assert.Equal(t, "Period 1", backend.added[0].Period)
}

func TestLoad_ContinuesWhenDeleteFails(t *testing.T) {
	backend := &fakeBackend{deleteErr: assert.AnError}

	result, err := NewLoader(backend, fastOptions(), zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Deleted)
	assert.Equal(t, 24, result.Loaded)
}

func TestLoad_BackendUnavailable(t *testing.T) {
	backend := &fakeBackend{healthFailures: 100}

	_, err := NewLoader(backend, fastOptions(), zerolog.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Empty(t, backend.added)
}

func TestLoad_OverHTTP(t *testing.T) {
	var (
		mu      sync.Mutex
		deletes int
		posted  []domain.PeriodInput
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/periods":
			deletes++
			_, _ = w.Write([]byte(`{"message":"deleted"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/period":
			var in domain.PeriodInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			posted = append(posted, in)
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := roiapi.NewClient(srv.URL, time.Second, zerolog.Nop())
	result, err := NewLoader(client, fastOptions(), zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, deletes)
	assert.Equal(t, 24, result.Loaded)
	require.Len(t, posted, 24)
	assert.Equal(t, 458, posted[0].CCCount)
	assert.Equal(t, 57, posted[0].ACHCount)
}
