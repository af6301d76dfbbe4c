package router

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cklinker/emfgw/internal/observability"
)

// compiledRoute is a route with its matcher built once at insert time.
type compiledRoute struct {
	def      RouteDefinition
	matcher  PathMatcher
	priority int
}

// snapshot is one immutable generation of the route table. Lookups
// walk a snapshot without locks; writers build a fresh one and swap.
type snapshot struct {
	byID      map[string]*compiledRoute
	exact     map[string]*compiledRoute
	wildcards []*compiledRoute
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byID:  make(map[string]*compiledRoute),
		exact: make(map[string]*compiledRoute),
	}
}

// Registry is the active route table. Reads are lock-free against the
// current snapshot; writes serialize on a mutex, rebuild, and publish
// atomically, so a bulk refresh is all-or-nothing for readers.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]

	logger  observability.Logger
	metrics *Metrics
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryMetrics sets the metrics recorder.
func WithRegistryMetrics(metrics *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(emptySnapshot())
	return r
}

// Add inserts a route. Both the id and the path pattern must be new.
func (r *Registry) Add(def RouteDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	routes := r.currentDefs()
	if _, exists := routes[def.ID]; exists {
		return fmt.Errorf("%w: id %s", ErrDuplicateRoute, def.ID)
	}
	for _, existing := range routes {
		if existing.Path == def.Path {
			return fmt.Errorf("%w: pattern %s", ErrDuplicateRoute, def.Path)
		}
	}
	routes[def.ID] = def

	return r.publish(routes)
}

// Remove deletes a route by id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := r.currentDefs()
	if _, exists := routes[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, id)
	}
	delete(routes, id)

	return r.publish(routes)
}

// Update replaces the route with the same id.
func (r *Registry) Update(def RouteDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	routes := r.currentDefs()
	if _, exists := routes[def.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, def.ID)
	}
	for id, existing := range routes {
		if id != def.ID && existing.Path == def.Path {
			return fmt.Errorf("%w: pattern %s", ErrDuplicateRoute, def.Path)
		}
	}
	routes[def.ID] = def

	return r.publish(routes)
}

// Upsert adds the route or replaces the one with the same id.
func (r *Registry) Upsert(def RouteDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	routes := r.currentDefs()
	for id, existing := range routes {
		if id != def.ID && existing.Path == def.Path {
			return fmt.Errorf("%w: pattern %s", ErrDuplicateRoute, def.Path)
		}
	}
	routes[def.ID] = def

	return r.publish(routes)
}

// Replace swaps the entire table for the given set in one atomic step.
// On any validation failure the current table stays untouched.
func (r *Registry) Replace(defs []RouteDefinition) error {
	routes := make(map[string]RouteDefinition, len(defs))
	patterns := make(map[string]string, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		if _, exists := routes[def.ID]; exists {
			return fmt.Errorf("%w: id %s", ErrDuplicateRoute, def.ID)
		}
		if owner, exists := patterns[def.Path]; exists {
			return fmt.Errorf("%w: pattern %s already used by %s", ErrDuplicateRoute, def.Path, owner)
		}
		routes[def.ID] = def
		patterns[def.Path] = def.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.publish(routes); err != nil {
		return err
	}
	r.metrics.RecordRefresh()
	r.logger.Info("route table replaced", observability.Int("routes", len(routes)))
	return nil
}

// Clear removes all routes.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current.Store(emptySnapshot())
	r.metrics.SetActiveRoutes(0)
}

// Size returns the number of active routes.
func (r *Registry) Size() int {
	return len(r.current.Load().byID)
}

// Routes returns the active definitions sorted by path.
func (r *Registry) Routes() []RouteDefinition {
	snap := r.current.Load()
	out := make([]RouteDefinition, 0, len(snap.byID))
	for _, route := range snap.byID {
		out = append(out, route.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FindByPath resolves a request path to a route. Exact patterns win
// over wildcards; wildcard ties go to the longest literal prefix. A
// miss is a normal condition reported through the bool.
func (r *Registry) FindByPath(path string) (*RouteDefinition, bool) {
	snap := r.current.Load()

	if route, ok := snap.exact[path]; ok {
		r.metrics.RecordMatch("exact")
		def := route.def
		return &def, true
	}

	for _, route := range snap.wildcards {
		if route.matcher.Match(path) {
			r.metrics.RecordMatch("wildcard")
			def := route.def
			return &def, true
		}
	}

	r.metrics.RecordMatch("miss")
	return nil, false
}

// currentDefs copies the live definitions for a writer to mutate.
// Callers hold r.mu.
func (r *Registry) currentDefs() map[string]RouteDefinition {
	snap := r.current.Load()
	routes := make(map[string]RouteDefinition, len(snap.byID))
	for id, route := range snap.byID {
		routes[id] = route.def
	}
	return routes
}

// publish compiles the definitions into a fresh snapshot and swaps it
// in. Callers hold r.mu.
func (r *Registry) publish(routes map[string]RouteDefinition) error {
	snap := emptySnapshot()

	for id, def := range routes {
		matcher, priority, err := newPathMatcher(def.Path)
		if err != nil {
			return fmt.Errorf("compiling route %s: %w", id, err)
		}
		route := &compiledRoute{def: def, matcher: matcher, priority: priority}
		snap.byID[id] = route
		if matcher.Type() == "exact" {
			snap.exact[def.Path] = route
		} else {
			snap.wildcards = append(snap.wildcards, route)
		}
	}

	// Priority order, pattern as tie break, so matching is
	// deterministic regardless of insertion order.
	sort.Slice(snap.wildcards, func(i, j int) bool {
		if snap.wildcards[i].priority != snap.wildcards[j].priority {
			return snap.wildcards[i].priority > snap.wildcards[j].priority
		}
		return snap.wildcards[i].def.Path < snap.wildcards[j].def.Path
	})

	r.current.Store(snap)
	r.metrics.SetActiveRoutes(len(snap.byID))
	return nil
}
