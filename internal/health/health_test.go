package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAlwaysHealthy(t *testing.T) {
	t.Parallel()

	checker := NewChecker("1.2.3", time.Second)
	checker.RegisterCheck("store", func(ctx context.Context) error {
		return errors.New("down")
	})

	response := checker.Health()
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.2.3", response.Version)
}

func TestReadinessAggregatesChecks(t *testing.T) {
	t.Parallel()

	checker := NewChecker("test", time.Second)
	checker.RegisterCheck("store", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("cache", func(ctx context.Context) error {
		return errors.New("redis unreachable")
	})

	response := checker.Readiness(context.Background())

	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, StatusHealthy, response.Checks["store"].Status)
	assert.Equal(t, StatusUnhealthy, response.Checks["cache"].Status)
	assert.Equal(t, "redis unreachable", response.Checks["cache"].Message)
}

func TestReadinessNoChecksIsHealthy(t *testing.T) {
	t.Parallel()

	checker := NewChecker("test", time.Second)
	response := checker.Readiness(context.Background())
	assert.Equal(t, StatusHealthy, response.Status)
}

func TestReadyHandlerStatusCodes(t *testing.T) {
	t.Parallel()

	t.Run("ready", func(t *testing.T) {
		t.Parallel()

		checker := NewChecker("test", time.Second)
		checker.RegisterCheck("store", func(ctx context.Context) error { return nil })

		rec := httptest.NewRecorder()
		checker.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()

		checker := NewChecker("test", time.Second)
		checker.RegisterCheck("store", func(ctx context.Context) error {
			return errors.New("down")
		})

		rec := httptest.NewRecorder()
		checker.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var response ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, StatusUnhealthy, response.Status)
	})
}

func TestCheckTimeoutApplies(t *testing.T) {
	t.Parallel()

	checker := NewChecker("test", 20*time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	start := time.Now()
	response := checker.Readiness(context.Background())

	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
