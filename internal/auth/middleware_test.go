package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklinker/emfgw/internal/observability"
)

type fakeVerifier struct {
	identity *Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func decodeAuthError(t *testing.T, rec *httptest.ResponseRecorder) authErrorBody {
	t.Helper()

	var body authErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Errors, 1)
	return body
}

func TestMiddleware_Disabled(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{Enabled: false})

	var sawIdentity bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, sawIdentity, "disabled middleware must not bind an identity")
}

func TestMiddleware_MissingHeader(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{identity: &Identity{UserID: "u-1"}},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeAuthError(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body.Errors[0].Code)
	assert.Equal(t, "401", body.Errors[0].Status)
}

func TestMiddleware_NonBearerScheme(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{identity: &Identity{UserID: "u-1"}},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{err: ErrInvalidToken},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.Header.Set("Authorization", "Bearer bad-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeAuthError(t, rec)
	assert.Equal(t, "invalid token", body.Errors[0].Detail)
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{err: ErrTokenExpired},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.Header.Set("Authorization", "Bearer stale-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeAuthError(t, rec)
	assert.Equal(t, "token expired", body.Errors[0].Detail)
}

func TestMiddleware_ValidToken(t *testing.T) {
	t.Parallel()

	want := &Identity{
		UserID:    "user-42",
		Email:     "user42@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{identity: want},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	var got *Identity
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-42", got.UserID)
}

func TestMiddleware_CaseInsensitiveBearer(t *testing.T) {
	t.Parallel()

	mw := Middleware(MiddlewareConfig{
		Verifier: &fakeVerifier{identity: &Identity{UserID: "u-1"}},
		Enabled:  true,
		Logger:   observability.NopLogger(),
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	req.Header.Set("Authorization", "bearer lower-case-scheme")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
