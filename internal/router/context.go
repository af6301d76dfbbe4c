package router

import "context"

type routeCtxKey struct{}

// ContextWithRoute binds a matched route to the context so downstream
// middleware and the proxy reuse the match instead of looking up again.
func ContextWithRoute(ctx context.Context, route *RouteDefinition) context.Context {
	return context.WithValue(ctx, routeCtxKey{}, route)
}

// RouteFromContext returns the route bound by the matching step, if any.
func RouteFromContext(ctx context.Context) (*RouteDefinition, bool) {
	route, ok := ctx.Value(routeCtxKey{}).(*RouteDefinition)
	if !ok || route == nil {
		return nil, false
	}
	return route, true
}
