package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cklinker/emfgw/internal/observability"
)

// MiddlewareConfig configures the bearer token middleware.
type MiddlewareConfig struct {
	// Verifier checks tokens. Required when Enabled.
	Verifier Verifier

	// Enabled turns verification on. When false the middleware is a
	// pass-through and no identity is bound.
	Enabled bool

	// Logger for verification failures.
	Logger observability.Logger
}

// Middleware verifies the Authorization bearer token and binds the
// resulting identity to the request context. Requests without a token
// or with a failing token get 401; enforcement decisions stay with the
// authorization layer.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "a bearer token is required")
				return
			}

			identity, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				logger.WithContext(r.Context()).Warn("token verification failed",
					observability.String("path", r.URL.Path),
					observability.Error(err),
				)
				writeAuthError(w, http.StatusUnauthorized, authErrorDetail(err))
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func authErrorDetail(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrNoCredentials):
		return "a bearer token is required"
	default:
		return "invalid token"
	}
}

// authErrorBody matches the platform's JSON error envelope.
type authErrorBody struct {
	Errors []authErrorDetailEntry `json:"errors"`
}

type authErrorDetailEntry struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authErrorBody{
		Errors: []authErrorDetailEntry{{
			Status: "401",
			Code:   "UNAUTHORIZED",
			Title:  "Authentication Required",
			Detail: detail,
		}},
	})
}
