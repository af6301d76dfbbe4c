package tenant

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareResolvesAndStripsSlug(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{tenants: map[string]*Tenant{
		"acme": {ID: "tenant-1", Slug: "acme"},
	}}

	var gotPath string
	var gotTenant *Context
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTenant, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(MiddlewareConfig{Directory: directory})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/acme/api/orders/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/orders/1", gotPath)
	require.NotNil(t, gotTenant)
	assert.Equal(t, "tenant-1", gotTenant.TenantID)
	assert.Equal(t, "acme", gotTenant.Slug)
}

func TestMiddlewareUnknownSlug(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{tenants: map[string]*Tenant{}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run for unknown tenants")
	})

	handler := Middleware(MiddlewareConfig{Directory: directory})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghost/api/orders", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body tenantErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "TENANT_NOT_FOUND", body.Errors[0].Code)
	assert.Equal(t, "404", body.Errors[0].Status)
}

func TestMiddlewarePlatformPathBypass(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{tenants: map[string]*Tenant{}}

	var gotPath string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, bound := FromContext(r.Context())
		assert.False(t, bound)
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(MiddlewareConfig{
		Directory:     directory,
		PlatformPaths: []string{"/internal/", "/healthz", "/metrics"},
	})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/permissions/u1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/internal/permissions/u1", gotPath)
	assert.Equal(t, 0, directory.lookupCount())
}

func TestMiddlewareNoSlug(t *testing.T) {
	t.Parallel()

	t.Run("pass through when prefix optional", func(t *testing.T) {
		t.Parallel()

		directory := &fakeDirectory{tenants: map[string]*Tenant{}}
		var called bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})

		handler := Middleware(MiddlewareConfig{Directory: directory})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reject when prefix required", func(t *testing.T) {
		t.Parallel()

		directory := &fakeDirectory{tenants: map[string]*Tenant{}}
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("next handler must not run without a tenant")
		})

		handler := Middleware(MiddlewareConfig{Directory: directory, RequirePrefix: true})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/UPPER/api/orders", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body tenantErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "TENANT_NOT_FOUND", body.Errors[0].Code)
	})
}

func TestMiddlewareDirectoryFailure(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectory{err: errors.New("store offline")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run when resolution fails")
	})

	handler := Middleware(MiddlewareConfig{Directory: directory})(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/acme/api/orders", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
