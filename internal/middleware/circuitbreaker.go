package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
)

// serverError marks a 5xx response as a breaker failure.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d", e.status)
}

// CircuitBreaker wraps a gobreaker instance for the proxy path.
type CircuitBreaker struct {
	cb      *gobreaker.CircuitBreaker
	logger  observability.Logger
	metrics *Metrics
}

// CircuitBreakerOption configures the breaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithCircuitBreakerLogger sets the logger.
func WithCircuitBreakerLogger(logger observability.Logger) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		if logger != nil {
			cb.logger = logger
		}
	}
}

// WithCircuitBreakerMetrics sets the metrics recorder.
func WithCircuitBreakerMetrics(metrics *Metrics) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.metrics = metrics
	}
}

// NewCircuitBreaker creates a breaker that trips once at least
// cfg.Threshold requests in the window have a failing majority.
func NewCircuitBreaker(name string, cfg *config.CircuitBreakerConfig, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(cb)
	}

	threshold := uint32(cfg.GetThreshold()) //nolint:gosec // GetThreshold is bounded positive
	timeout := cfg.GetTimeout()

	cb.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: threshold,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cb.logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			cb.metrics.RecordBreakerTransition(from.String(), to.String())
		},
	})

	return cb
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}

// CircuitBreakerMiddleware runs the request through the breaker. 5xx
// responses count as failures; an open breaker answers 503 without
// touching the backend.
func CircuitBreakerMiddleware(cb *CircuitBreaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			_, err := cb.cb.Execute(func() (interface{}, error) {
				next.ServeHTTP(rw, r)
				if rw.status >= http.StatusInternalServerError {
					return nil, &serverError{status: rw.status}
				}
				return nil, nil
			})
			if err == nil {
				return
			}

			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				cb.metrics.RecordBreakerRejection()
				cb.logger.WithContext(r.Context()).Warn("circuit breaker rejected request",
					observability.String("path", r.URL.Path),
					observability.String("state", cb.State().String()),
				)
				if !rw.written {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = io.WriteString(w, `{"error":"service unavailable"}`)
				}
			}
			// For server errors the handler already wrote the response.
		})
	}
}

// CircuitBreakerFromConfig builds the middleware, a no-op when disabled.
func CircuitBreakerFromConfig(cfg *config.CircuitBreakerConfig, opts ...CircuitBreakerOption) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return CircuitBreakerMiddleware(NewCircuitBreaker("gateway", cfg, opts...))
}
