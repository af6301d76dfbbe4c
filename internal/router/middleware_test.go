package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareBindsMatchedRoute(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(RouteDefinition{
		ID:         "orders",
		Path:       "/api/orders/**",
		BackendURL: "http://worker-1:8080",
		Service:    "orders",
	}))

	var bound *RouteDefinition
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound, _ = RouteFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(registry, nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/42", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, bound)
	assert.Equal(t, "orders", bound.ID)
}

func TestMiddlewarePassesThroughOnMiss(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := RouteFromContext(r.Context())
		assert.False(t, ok)
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(registry, nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	assert.True(t, called)
}
