package router

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoute(id, path, service string) RouteDefinition {
	return RouteDefinition{
		ID:         id,
		Path:       path,
		BackendURL: "http://" + service + ":8080",
		Service:    service,
	}
}

func TestRegistryAddAndFind(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders")))

	def, ok := registry.FindByPath("/api/orders")
	require.True(t, ok)
	assert.Equal(t, "orders", def.Service)

	_, ok = registry.FindByPath("/api/leads")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Size())
}

func TestRegistryExactBeatsWildcard(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("a", "/api/orders/**", "backend-a")))
	require.NoError(t, registry.Add(testRoute("b", "/api/orders/special", "backend-b")))

	def, ok := registry.FindByPath("/api/orders/special")
	require.True(t, ok)
	assert.Equal(t, "backend-b", def.Service)

	def, ok = registry.FindByPath("/api/orders/other")
	require.True(t, ok)
	assert.Equal(t, "backend-a", def.Service)
}

func TestRegistryLongestPrefixWins(t *testing.T) {
	t.Parallel()

	// Insertion order must not matter; the longer literal prefix wins.
	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("short", "/api/**", "short")))
	require.NoError(t, registry.Add(testRoute("long", "/api/orders/**", "long")))

	def, ok := registry.FindByPath("/api/orders/123")
	require.True(t, ok)
	assert.Equal(t, "long", def.Service)

	def, ok = registry.FindByPath("/api/leads/123")
	require.True(t, ok)
	assert.Equal(t, "short", def.Service)

	reversed := NewRegistry()
	require.NoError(t, reversed.Add(testRoute("long", "/api/orders/**", "long")))
	require.NoError(t, reversed.Add(testRoute("short", "/api/**", "short")))

	def, ok = reversed.FindByPath("/api/orders/123")
	require.True(t, ok)
	assert.Equal(t, "long", def.Service)
}

func TestRegistryMultiSegmentBeatsSingleOnEqualPrefix(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("single", "/api/orders/*", "single")))
	require.NoError(t, registry.Add(testRoute("multi", "/api/orders/**", "multi")))

	def, ok := registry.FindByPath("/api/orders/123")
	require.True(t, ok)
	assert.Equal(t, "multi", def.Service)

	// Only the multi segment pattern can match deeper paths.
	def, ok = registry.FindByPath("/api/orders/123/items")
	require.True(t, ok)
	assert.Equal(t, "multi", def.Service)
}

func TestRegistrySingleSegmentBoundary(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders/*", "orders")))

	_, ok := registry.FindByPath("/api/orders/123")
	assert.True(t, ok)

	_, ok = registry.FindByPath("/api/orders/123/items")
	assert.False(t, ok)
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders")))

	require.NoError(t, registry.Remove("r1"))
	assert.Equal(t, 0, registry.Size())

	_, ok := registry.FindByPath("/api/orders")
	assert.False(t, ok)

	assert.ErrorIs(t, registry.Remove("r1"), ErrRouteNotFound)
}

func TestRegistryUpdate(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders-v1")))
	require.NoError(t, registry.Add(testRoute("r2", "/api/leads", "leads")))

	require.NoError(t, registry.Update(testRoute("r1", "/api/orders", "orders-v2")))

	def, ok := registry.FindByPath("/api/orders")
	require.True(t, ok)
	assert.Equal(t, "orders-v2", def.Service)

	assert.ErrorIs(t, registry.Update(testRoute("missing", "/api/x", "x")), ErrRouteNotFound)
	assert.ErrorIs(t, registry.Update(testRoute("r1", "/api/leads", "clash")), ErrDuplicateRoute)
}

func TestRegistryDuplicates(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders")))

	assert.ErrorIs(t, registry.Add(testRoute("r1", "/api/other", "other")), ErrDuplicateRoute)
	assert.ErrorIs(t, registry.Add(testRoute("r9", "/api/orders", "other")), ErrDuplicateRoute)
}

func TestRegistryValidation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	tests := []struct {
		name  string
		route RouteDefinition
	}{
		{name: "missing id", route: RouteDefinition{Path: "/a", BackendURL: "http://b:1", Service: "s"}},
		{name: "relative path", route: RouteDefinition{ID: "x", Path: "a", BackendURL: "http://b:1", Service: "s"}},
		{name: "missing service", route: RouteDefinition{ID: "x", Path: "/a", BackendURL: "http://b:1"}},
		{name: "bad scheme", route: RouteDefinition{ID: "x", Path: "/a", BackendURL: "ftp://b:1", Service: "s"}},
		{name: "missing host", route: RouteDefinition{ID: "x", Path: "/a", BackendURL: "http://", Service: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, registry.Add(tt.route), ErrInvalidRoute)
		})
	}
}

func TestRegistryReplaceIsAtomic(t *testing.T) {
	t.Parallel()

	const routeCount = 10

	buildSet := func(service string) []RouteDefinition {
		defs := make([]RouteDefinition, 0, routeCount)
		for i := 0; i < routeCount; i++ {
			defs = append(defs, testRoute(
				fmt.Sprintf("%s-%d", service, i),
				fmt.Sprintf("/r/%d", i),
				service,
			))
		}
		return defs
	}

	setA := buildSet("backend-a")
	setB := buildSet("backend-b")

	registry := NewRegistry()
	require.NoError(t, registry.Replace(setA))

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Readers: every lookup and every listing must observe one
	// coherent generation, backend-a or backend-b, never a blend.
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				def, ok := registry.FindByPath("/r/3")
				if assert.True(t, ok) {
					assert.Contains(t, []string{"backend-a", "backend-b"}, def.Service)
				}

				routes := registry.Routes()
				if assert.Len(t, routes, routeCount) {
					service := routes[0].Service
					for _, r := range routes {
						assert.Equal(t, service, r.Service)
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			require.NoError(t, registry.Replace(setB))
		} else {
			require.NoError(t, registry.Replace(setA))
		}
	}
	close(done)
	wg.Wait()
}

func TestRegistryReplaceRejectsInvalidSetUntouched(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders")))

	err := registry.Replace([]RouteDefinition{
		testRoute("a", "/ok", "ok"),
		{ID: "b", Path: "bad", BackendURL: "http://x:1", Service: "x"},
	})
	require.ErrorIs(t, err, ErrInvalidRoute)

	// Old table still serving.
	_, ok := registry.FindByPath("/api/orders")
	assert.True(t, ok)
	assert.Equal(t, 1, registry.Size())
}

func TestRegistryClear(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Add(testRoute("r1", "/api/orders", "orders")))
	require.NoError(t, registry.Add(testRoute("r2", "/api/leads/**", "leads")))

	registry.Clear()
	assert.Equal(t, 0, registry.Size())

	_, ok := registry.FindByPath("/api/orders")
	assert.False(t, ok)
	assert.Empty(t, registry.Routes())
}
