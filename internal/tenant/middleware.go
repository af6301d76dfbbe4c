package tenant

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cklinker/emfgw/internal/observability"
)

// MiddlewareConfig configures the slug extraction middleware.
type MiddlewareConfig struct {
	// Directory resolves slugs to tenants.
	Directory Directory

	// PlatformPaths bypass slug extraction entirely (health, metrics).
	PlatformPaths []string

	// RequirePrefix rejects requests without a resolvable slug. When
	// false (migration mode) slugless requests pass through unbound.
	RequirePrefix bool

	// Logger for resolution events.
	Logger observability.Logger

	// Metrics for resolution outcomes.
	Metrics *Metrics
}

// Middleware extracts the tenant slug from the first path segment,
// binds the tenant to the request context, and rewrites the path with
// the slug stripped so route matching sees bare paths.
//
// Incoming /acme/api/orders/1 is forwarded as /api/orders/1 with the
// acme tenant bound. Unknown slugs produce 404 TENANT_NOT_FOUND.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			for _, prefix := range cfg.PlatformPaths {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			slug, rest, ok := SplitSlug(path)
			if !ok {
				cfg.Metrics.RecordResolution("invalid")
				if cfg.RequirePrefix {
					writeTenantNotFound(w, "a tenant identifier is required in the URL path")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			resolved, err := cfg.Directory.TenantBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, ErrUnknownTenant) {
					cfg.Metrics.RecordResolution("unknown")
					writeTenantNotFound(w, "tenant not found: "+slug)
					return
				}
				logger.WithContext(r.Context()).Error("tenant resolution failed",
					observability.String("slug", slug),
					observability.Error(err),
				)
				http.Error(w, "tenant resolution unavailable", http.StatusServiceUnavailable)
				return
			}

			cfg.Metrics.RecordResolution("resolved")

			ctx := ContextWithTenant(r.Context(), &Context{
				TenantID: resolved.ID,
				Slug:     slug,
			})

			r2 := r.Clone(ctx)
			r2.URL.Path = rest
			if r.URL.RawPath != "" {
				r2.URL.RawPath = ""
			}

			logger.WithContext(ctx).Debug("resolved tenant slug",
				observability.String("slug", slug),
				observability.String("tenant_id", resolved.ID),
				observability.String("path", rest),
			)

			next.ServeHTTP(w, r2)
		})
	}
}

// tenantErrorBody matches the platform's JSON error envelope.
type tenantErrorBody struct {
	Errors []tenantErrorDetail `json:"errors"`
}

type tenantErrorDetail struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func writeTenantNotFound(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(tenantErrorBody{
		Errors: []tenantErrorDetail{{
			Status: "404",
			Code:   "TENANT_NOT_FOUND",
			Title:  "Tenant Not Found",
			Detail: detail,
		}},
	})
}
