package authz

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cklinker/emfgw/internal/audit"
	"github.com/cklinker/emfgw/internal/auth"
	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/tenant"
)

// MiddlewareConfig configures the enforcement middleware.
type MiddlewareConfig struct {
	// Authorizer answers permission lookups.
	Authorizer Authorizer

	// Audit records denial events. Optional.
	Audit audit.Logger

	// Logger for enforcement decisions.
	Logger observability.Logger

	// Metrics for decision outcomes.
	Metrics *Metrics
}

// Middleware enforces collection permissions on matched routes. The
// required collection is the matched route's service name; the request
// method maps onto the snapshot's collection flags. Requests without a
// matched route pass through so the proxy can answer 404 itself.
//
// Every failure blocks the request. A missing identity is 401, a
// missing tenant or insufficient flags is 403, and an unreachable
// permission source is 503.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			route, ok := router.RouteFromContext(ctx)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tenantID := tenant.ID(ctx)

			identity, ok := auth.IdentityFromContext(ctx)
			if !ok {
				cfg.Metrics.RecordDecision("denied")
				cfg.recordDenial(r, tenantID, "", route.Service, "no_identity")
				writeAuthzError(w, http.StatusUnauthorized, "UNAUTHORIZED",
					"Authentication Required", "authentication required")
				return
			}

			if tenantID == "" {
				cfg.Metrics.RecordDecision("denied")
				cfg.recordDenial(r, "", identity.UserID, route.Service, "no_tenant")
				writeAuthzError(w, http.StatusForbidden, "FORBIDDEN",
					"Access Denied", "no tenant context")
				return
			}

			perms, err := cfg.Authorizer.EffectivePermissions(ctx, tenantID, identity.UserID)
			if err != nil {
				cfg.Metrics.RecordDecision("error")
				logger.WithContext(ctx).Error("permission lookup failed, blocking request",
					observability.String("tenant_id", tenantID),
					observability.String("user_id", identity.UserID),
					observability.String("path", r.URL.Path),
					observability.Error(err),
				)
				writeAuthzError(w, http.StatusServiceUnavailable, "PERMISSIONS_UNAVAILABLE",
					"Permissions Unavailable", "permission resolution is temporarily unavailable")
				return
			}

			collection := route.Service
			if !methodAllowed(r.Method, perms.Collections[collection]) {
				cfg.Metrics.RecordDecision("denied")
				cfg.recordDenial(r, tenantID, identity.UserID, collection, "insufficient_permissions")
				logger.WithContext(ctx).Warn("access denied",
					observability.String("tenant_id", tenantID),
					observability.String("user_id", identity.UserID),
					observability.String("collection", collection),
					observability.String("method", r.Method),
				)
				writeAuthzError(w, http.StatusForbidden, "FORBIDDEN",
					"Access Denied", "you do not have permission to perform this operation on "+collection)
				return
			}

			cfg.Metrics.RecordDecision("allowed")
			next.ServeHTTP(w, r.WithContext(ContextWithPermissions(ctx, perms)))
		})
	}
}

// methodAllowed maps an HTTP method onto the collection flags. Unknown
// methods are denied.
func methodAllowed(method string, p grants.CollectionPermissions) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return p.CanRead
	case http.MethodPost:
		return p.CanCreate
	case http.MethodPut, http.MethodPatch:
		return p.CanEdit
	case http.MethodDelete:
		return p.CanDelete
	default:
		return false
	}
}

func (cfg MiddlewareConfig) recordDenial(r *http.Request, tenantID, userID, collection, reason string) {
	if cfg.Audit == nil {
		return
	}

	event := audit.NewEvent(audit.EventTypeAuthorization, audit.ActionAccessDenied, audit.OutcomeDenied)
	event.TenantID = tenantID
	event.UserID = userID
	event.Resource = r.Method + " " + r.URL.Path
	event.Details = map[string]any{
		"collection": collection,
		"reason":     reason,
	}

	cfg.Audit.Record(r.Context(), event)
}

// authzErrorBody matches the platform's JSON error envelope.
type authzErrorBody struct {
	Errors []authzErrorDetail `json:"errors"`
}

type authzErrorDetail struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func writeAuthzError(w http.ResponseWriter, status int, code, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authzErrorBody{
		Errors: []authzErrorDetail{{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
			Detail: detail,
		}},
	})
}
