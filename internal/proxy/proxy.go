package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cklinker/emfgw/internal/auth"
	"github.com/cklinker/emfgw/internal/authz"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/router"
)

// Headers injected for downstream workers. Inbound values are always
// stripped so callers cannot spoof them.
const (
	HeaderUserID          = "X-EMF-User-Id"
	HeaderEffectiveGroups = "X-EMF-Effective-Groups"
	HeaderTenantID        = "X-EMF-Tenant-Id"
)

// hopHeaders are dropped before forwarding, per RFC 7230 section 6.1.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ReverseProxy forwards requests to the backend named by the matched
// route. Matching normally happens in the routing middleware; when no
// match is bound to the context the proxy consults the registry itself.
type ReverseProxy struct {
	registry      *router.Registry
	logger        observability.Logger
	metrics       *Metrics
	transport     http.RoundTripper
	flushInterval time.Duration
}

// Option is a functional option for configuring the proxy.
type Option func(*ReverseProxy)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *ReverseProxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) Option {
	return func(p *ReverseProxy) {
		p.metrics = metrics
	}
}

// WithTransport sets the upstream round tripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(p *ReverseProxy) {
		p.transport = transport
	}
}

// WithFlushInterval sets the flush interval for streaming responses.
func WithFlushInterval(interval time.Duration) Option {
	return func(p *ReverseProxy) {
		p.flushInterval = interval
	}
}

// New creates a reverse proxy over the route registry.
func New(registry *router.Registry, opts ...Option) *ReverseProxy {
	p := &ReverseProxy{
		registry:      registry,
		logger:        observability.NopLogger(),
		flushInterval: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ServeHTTP implements http.Handler.
func (p *ReverseProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	route, ok := router.RouteFromContext(ctx)
	if !ok {
		route, ok = p.registry.FindByPath(r.URL.Path)
		if !ok {
			p.handleNoRoute(w, r)
			return
		}
		r = r.WithContext(router.ContextWithRoute(ctx, route))
	}

	target, err := url.Parse(route.BackendURL)
	if err != nil || target.Host == "" {
		// Validate catches this before a route enters the table.
		p.logger.Error("unusable backend url",
			observability.String("route_id", route.ID),
			observability.String("backend_url", route.BackendURL),
		)
		p.metrics.RecordRequest(route.Service, "bad_backend", 0)
		writeProxyError(w, http.StatusBadGateway, "BAD_GATEWAY",
			"Bad Gateway", "backend is misconfigured")
		return
	}

	outcome := "ok"
	upstream := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			p.director(req, target, r)
		},
		Transport:     p.transport,
		FlushInterval: p.flushInterval,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			outcome = p.handleUpstreamError(w, req, route, err)
		},
	}

	start := time.Now()
	upstream.ServeHTTP(w, r)
	p.metrics.RecordRequest(route.Service, outcome, time.Since(start))
}

// director rewrites the outbound request: target address, forwarding
// headers, and the identity headers workers filter records by.
func (p *ReverseProxy) director(req *http.Request, target *url.URL, original *http.Request) {
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.URL.Path = joinPath(target.Path, original.URL.Path)
	req.URL.RawQuery = original.URL.RawQuery
	req.Host = target.Host

	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	if clientIP, _, err := net.SplitHostPort(original.RemoteAddr); err == nil {
		if prior := original.Header.Get("X-Forwarded-For"); prior != "" {
			clientIP = prior + ", " + clientIP
		}
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	if original.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	req.Header.Set("X-Forwarded-Host", original.Host)

	setIdentityHeaders(req, original.Context())
}

// setIdentityHeaders replaces any inbound identity headers with values
// derived from the verified request context.
func setIdentityHeaders(req *http.Request, ctx context.Context) {
	req.Header.Del(HeaderUserID)
	req.Header.Del(HeaderEffectiveGroups)
	req.Header.Del(HeaderTenantID)

	if identity, ok := auth.IdentityFromContext(ctx); ok {
		req.Header.Set(HeaderUserID, identity.UserID)
	}
	if perms, ok := authz.PermissionsFromContext(ctx); ok {
		req.Header.Set(HeaderTenantID, perms.TenantID)
		if len(perms.GroupIDs) > 0 {
			req.Header.Set(HeaderEffectiveGroups, strings.Join(perms.GroupIDs, ","))
		}
	}
}

// joinPath glues the backend base path and the request path together
// with exactly one slash.
func joinPath(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	return strings.TrimSuffix(base, "/") + path
}

// handleNoRoute answers an unmatched path. A miss is an ordinary
// not-found, not a gateway failure.
func (p *ReverseProxy) handleNoRoute(w http.ResponseWriter, r *http.Request) {
	p.metrics.RecordMiss()
	p.logger.WithContext(r.Context()).Debug("no route for path",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
	)
	writeProxyError(w, http.StatusNotFound, "ROUTE_NOT_FOUND",
		"Not Found", "no backend serves this path")
}

// handleUpstreamError maps backend failures onto gateway responses:
// an exceeded deadline is 504, everything else 502.
func (p *ReverseProxy) handleUpstreamError(w http.ResponseWriter, r *http.Request, route *router.RouteDefinition, err error) string {
	logger := p.logger.WithContext(r.Context())

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.Warn("backend request canceled",
			observability.String("service", route.Service),
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		writeProxyError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"Gateway Timeout", "the backend did not answer in time")
		return "timeout"
	}

	logger.Error("backend request failed",
		observability.String("service", route.Service),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	)
	writeProxyError(w, http.StatusBadGateway, "UPSTREAM_ERROR",
		"Bad Gateway", "the backend is unavailable")
	return "error"
}

// proxyErrorBody matches the platform's JSON error envelope.
type proxyErrorBody struct {
	Errors []proxyErrorDetail `json:"errors"`
}

type proxyErrorDetail struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func writeProxyError(w http.ResponseWriter, status int, code, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(proxyErrorBody{
		Errors: []proxyErrorDetail{{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
			Detail: detail,
		}},
	})
}
