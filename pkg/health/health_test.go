package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysPass(_ context.Context) error { return nil }

func alwaysFail(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

// fireN drives a probe through n check executions.
func fireN(p *probe, n int) {
	for range n {
		p.fire(context.Background())
	}
}

func getBody(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Health)
		wantCode   int
		wantStatus string
		wantCheck  string
	}{
		{
			name: "passing probes",
			setup: func(h *Health) {
				h.AddLivenessCheck("goroutines", time.Second, alwaysPass)
				h.AddLivenessCheck("gc-pause", time.Second, alwaysPass)
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "no probes registered",
			setup:      func(h *Health) {},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "probe past failure threshold",
			setup: func(h *Health) {
				h.AddLivenessCheck("db", time.Second, alwaysFail("connection refused"))
				fireN(h.liveness[0], failureThreshold)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantCheck:  "db",
		},
		{
			name: "probe below failure threshold stays healthy",
			setup: func(h *Health) {
				h.AddLivenessCheck("flaky", time.Second, alwaysFail("temporary"))
				fireN(h.liveness[0], failureThreshold-1)
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			tt.setup(h)

			w := httptest.NewRecorder()
			h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := getBody(t, w)
			assert.Equal(t, tt.wantStatus, body.Status)
			if tt.wantCheck != "" {
				assert.Contains(t, body.Checks, tt.wantCheck)
			}
		})
	}
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysPass)

	// Not ready until SetReady(true).
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, getBody(t, w).Checks, "_readiness")

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Draining flips it back.
	h.SetReady(false)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyEndpoint_ReportsOnlyFailingProbes(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysPass)
	h.AddReadinessCheck("cache", time.Second, alwaysFail("cache miss"))
	h.SetReady(true)

	fireN(h.readiness[1], failureThreshold)

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := getBody(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "cache miss", body.Checks["cache"])
	assert.NotContains(t, body.Checks, "postgres")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysPass)

	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestIsReady_FailingProbeBlocks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysFail("down"))
	h.SetReady(true)

	assert.True(t, h.IsReady(), "probes start healthy")

	fireN(h.readiness[0], failureThreshold)
	assert.False(t, h.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	p := h.liveness[0]

	fireN(p, failureThreshold)
	assert.False(t, p.ok.Load())

	failing = false
	fireN(p, successThreshold)
	assert.True(t, p.ok.Load())
}

func TestProbeFailureMessage(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, alwaysFail("timeout"))
	p := h.liveness[0]

	// Before any execution there is no stored result.
	assert.Equal(t, "check is unhealthy", p.failure())

	fireN(p, 1)
	assert.Equal(t, "timeout", p.failure())
}

func TestStop_Idempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, alwaysPass)
	h.Start(context.Background(), 100*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	// Endpoints and IsReady race against the probe loops; run under -race.
	h := New()
	h.AddLivenessCheck("concurrent", time.Second, alwaysFail("err"))
	h.AddReadinessCheck("concurrent", time.Second, alwaysPass)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
