package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cklinker/emfgw/internal/authz"
	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/events"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/observability"
)

// HeaderTenantID carries the tenant scope on service-to-service calls.
// The internal listener has no tenant slug in the path.
const HeaderTenantID = "X-EMF-Tenant-Id"

// GroupSyncer reconciles OIDC group claims. *groups.Service satisfies it.
type GroupSyncer interface {
	SyncOIDCGroups(ctx context.Context, tenantID, userID string, claimGroups []string) (*groups.SyncResult, error)
}

// Server is the internal admin API.
type Server struct {
	engine *gin.Engine
	srv    *http.Server

	authorizer authz.Authorizer
	syncer     GroupSyncer
	publisher  events.Publisher

	logger  observability.Logger
	metrics *Metrics
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithPublisher sets the event publisher used after membership changes.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Server) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// New creates the internal API server.
func New(cfg *config.InternalAPIConfig, authorizer authz.Authorizer, syncer GroupSyncer, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: internal API configuration is required")
	}
	if authorizer == nil {
		return nil, errors.New("api: authorizer is required")
	}
	if syncer == nil {
		return nil, errors.New("api: group syncer is required")
	}

	s := &Server{
		authorizer: authorizer,
		syncer:     syncer,
		publisher:  events.NopPublisher(),
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.recoveryMiddleware(), s.loggingMiddleware())
	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.GetBurst())
		engine.Use(s.rateLimitMiddleware(limiter))
	}

	internal := engine.Group("/internal")
	internal.GET("/permissions/:userId", s.handlePermissions)
	internal.POST("/sync-groups", s.handleSyncGroups)

	s.engine = engine
	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("internal API listening", observability.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("internal API server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// recoveryMiddleware keeps a handler panic from killing the listener.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("internal API panic recovered",
					observability.String("path", c.Request.URL.Path),
					observability.Any("error", err),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(
					http.StatusInternalServerError, "INTERNAL", "Internal Server Error",
					"an unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs one line per request and feeds the metrics.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		s.metrics.RecordRequest(endpoint, strconv.Itoa(c.Writer.Status()), duration)
		s.logger.WithContext(c.Request.Context()).Info("internal API request",
			observability.String("method", c.Request.Method),
			observability.String("path", c.Request.URL.Path),
			observability.Int("status", c.Writer.Status()),
			observability.Duration("duration", duration),
		)
	}
}

// rateLimitMiddleware applies one token bucket across the listener.
func (s *Server) rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			s.metrics.RecordRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(
				http.StatusTooManyRequests, "RATE_LIMITED", "Too Many Requests",
				"request rate exceeds the configured limit"))
			return
		}
		c.Next()
	}
}
