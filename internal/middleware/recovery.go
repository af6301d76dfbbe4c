package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/cklinker/emfgw/internal/observability"
)

// Recovery returns a middleware that turns panics into 500 responses.
// A cross-tenant write panic from deeper layers still surfaces here as
// an error log with the full stack, never a silent swallow.
func Recovery(logger observability.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithContext(r.Context()).Error("panic recovered",
						observability.String("path", r.URL.Path),
						observability.String("method", r.Method),
						observability.Any("error", err),
						observability.String("stack", string(debug.Stack())),
					)
					metrics.RecordPanic()

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = io.WriteString(w, `{"error":"internal server error"}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
