package router

import (
	"net/http"

	"github.com/cklinker/emfgw/internal/observability"
)

// Middleware matches the request path against the registry and binds
// the result to the context so enforcement and the proxy share one
// lookup. A miss passes through unbound; the proxy answers 404 itself.
func Middleware(registry *Registry, logger observability.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := registry.FindByPath(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			logger.WithContext(r.Context()).Debug("matched route",
				observability.String("route_id", route.ID),
				observability.String("service", route.Service),
				observability.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ContextWithRoute(r.Context(), route)))
		})
	}
}
