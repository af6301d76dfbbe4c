package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cklinker/emfgw/internal/api"
	"github.com/cklinker/emfgw/internal/audit"
	"github.com/cklinker/emfgw/internal/auth"
	"github.com/cklinker/emfgw/internal/authz"
	"github.com/cklinker/emfgw/internal/cache"
	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/events"
	"github.com/cklinker/emfgw/internal/grants"
	"github.com/cklinker/emfgw/internal/groups"
	"github.com/cklinker/emfgw/internal/health"
	"github.com/cklinker/emfgw/internal/middleware"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/proxy"
	"github.com/cklinker/emfgw/internal/router"
	"github.com/cklinker/emfgw/internal/secrets"
	"github.com/cklinker/emfgw/internal/store"
	"github.com/cklinker/emfgw/internal/tenant"
)

// metricsNamespace prefixes every Prometheus metric the gateway emits.
const metricsNamespace = "emfgw"

// readinessCheckTimeout bounds each registered readiness probe.
const readinessCheckTimeout = 5 * time.Second

// application bundles every long-lived component so startup and
// shutdown walk the same list.
type application struct {
	cfg    *config.GatewayConfig
	logger observability.Logger

	metrics *observability.Metrics
	tracer  *observability.Tracer
	checker *health.Checker

	store      store.Store
	registry   *router.Registry
	authorizer authz.Authorizer
	publisher  events.Publisher
	consumer   *events.Consumer
	watcher    *config.Watcher

	proxyServer *http.Server
	apiServer   *api.Server
}

// resolvedSecrets holds every secret the configuration references,
// looked up once at startup.
type resolvedSecrets struct {
	storeDSN       string
	cachePassword  string
	eventsPassword string
	jwtStaticKey   string
}

// initApplication wires every component from configuration. Ordering
// follows the dependency graph: secrets before stores, stores before
// resolvers, resolvers before the middleware chain.
func initApplication(ctx context.Context, configPath string, cfg *config.GatewayConfig, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics(metricsNamespace)
	registerer := metrics.Registry()

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Spec.Tracing.ServiceName,
		OTLPEndpoint: cfg.Spec.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Spec.Tracing.SamplingRate,
		Enabled:      cfg.Spec.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	sec, err := resolveSecrets(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	auditLogger := audit.NewLogger(logger,
		audit.WithMetrics(audit.NewMetricsWithRegisterer(metricsNamespace, registerer)))
	tenantMetrics := tenant.NewMetricsWithRegisterer(metricsNamespace, registerer)

	guard := tenant.NewGuard(
		tenant.WithGuardLogger(logger),
		tenant.WithGuardAuditor(auditLogger),
		tenant.WithGuardMetrics(tenantMetrics),
	)

	storeOpts := []store.Option{store.WithLogger(logger), store.WithGuard(guard)}
	if sec.storeDSN != "" {
		storeOpts = append(storeOpts, store.WithDSN(sec.storeDSN))
	}
	st, err := store.New(ctx, &cfg.Spec.Store, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	directory := tenant.NewCachedDirectory(st, cfg.Spec.Tenancy.GetDirectoryTTL())

	groupsMetrics := groups.NewMetricsWithRegisterer(metricsNamespace, registerer)
	groupsResolver := groups.NewResolver(st,
		groups.WithResolverLogger(logger),
		groups.WithResolverMetrics(groupsMetrics),
		groups.WithMaxDepth(cfg.Spec.Authz.GetMaxGroupDepth()),
	)
	groupsService := groups.NewService(st, groupsResolver,
		groups.WithServiceLogger(logger),
		groups.WithServiceAuditor(auditLogger),
		groups.WithServiceMetrics(groupsMetrics),
	)

	grantsResolver := grants.NewResolver(groupsResolver, st,
		grants.WithResolverLogger(logger),
		grants.WithResolverMetrics(grants.NewMetricsWithRegisterer(metricsNamespace, registerer)),
	)

	cacheBackend, err := cache.New(cfg.Spec.Cache, logger,
		cache.WithRedisPassword(sec.cachePassword))
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	authzMetrics := authz.NewMetricsWithRegisterer(metricsNamespace, registerer)
	permCache := authz.NewPermissionCache(cacheBackend, cfg.Spec.Authz.GetPermissionTTL(),
		authz.WithPermissionCacheLogger(logger),
		authz.WithPermissionCacheMetrics(authzMetrics),
	)
	authorizer, err := authz.NewAuthorizer(grantsResolver, permCache,
		authz.WithAuthorizerLogger(logger),
		authz.WithAuthorizerMetrics(authzMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("init authorizer: %w", err)
	}

	registry := router.NewRegistry(
		router.WithRegistryLogger(logger),
		router.WithRegistryMetrics(router.NewMetricsWithRegisterer(metricsNamespace, registerer)),
	)
	if err := loadRouteTable(ctx, cfg, st, registry, logger); err != nil {
		return nil, err
	}

	var verifier auth.Verifier
	if cfg.Spec.Auth.Enabled {
		verifierOpts := []auth.VerifierOption{
			auth.WithVerifierLogger(logger),
			auth.WithVerifierMetrics(auth.NewMetricsWithRegisterer(metricsNamespace, registerer)),
		}
		if sec.jwtStaticKey != "" {
			verifierOpts = append(verifierOpts, auth.WithStaticSecret(sec.jwtStaticKey))
		}
		verifier, err = auth.NewVerifier(ctx, &cfg.Spec.Auth, verifierOpts...)
		if err != nil {
			return nil, fmt.Errorf("init token verifier: %w", err)
		}
	}

	eventsMetrics := events.NewMetricsWithRegisterer(metricsNamespace, registerer)
	publisher, err := events.NewPublisher(cfg.Spec.Events,
		events.WithPublisherLogger(logger),
		events.WithPublisherMetrics(eventsMetrics),
		events.WithPublisherPassword(sec.eventsPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}

	var consumer *events.Consumer
	if cfg.Spec.Events != nil && cfg.Spec.Events.Enabled {
		consumer, err = events.NewConsumer(cfg.Spec.Events, authorizer, registry,
			events.WithConsumerLogger(logger),
			events.WithConsumerMetrics(eventsMetrics),
			events.WithConsumerPassword(sec.eventsPassword),
		)
		if err != nil {
			return nil, fmt.Errorf("init event consumer: %w", err)
		}
	}

	checker := health.NewChecker(version, readinessCheckTimeout)
	checker.RegisterCheck("store", st.Ping)

	app := &application{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		checker:    checker,
		store:      st,
		registry:   registry,
		authorizer: authorizer,
		publisher:  publisher,
		consumer:   consumer,
	}

	chain := buildProxyChain(proxyChainDeps{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics,
		registerer:    registerer,
		tracer:        tracer,
		directory:     directory,
		tenantMetrics: tenantMetrics,
		verifier:      verifier,
		registry:      registry,
		authorizer:    authorizer,
		authzMetrics:  authzMetrics,
		audit:         auditLogger,
	})
	app.proxyServer = newProxyServer(cfg, metrics, checker, chain)

	apiServer, err := api.New(&cfg.Spec.InternalAPI, authorizer, groupsService,
		api.WithLogger(logger),
		api.WithMetrics(api.NewMetricsWithRegisterer(metricsNamespace, registerer)),
		api.WithPublisher(publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("init internal API: %w", err)
	}
	app.apiServer = apiServer

	watcher, err := config.NewWatcher(configPath, app.onConfigReload,
		config.WithWatcherLogger(logger))
	if err != nil {
		// A missing watcher degrades reload, not serving.
		logger.Warn("config watcher unavailable, reload disabled", observability.Error(err))
	} else {
		app.watcher = watcher
	}

	return app, nil
}

// resolveSecrets looks up every secret the configuration names through
// the configured provider.
func resolveSecrets(ctx context.Context, cfg *config.GatewayConfig, logger observability.Logger) (*resolvedSecrets, error) {
	provider, err := secrets.New(cfg.Spec.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("init secrets provider: %w", err)
	}

	sec := &resolvedSecrets{}

	if pg := cfg.Spec.Store.Postgres; pg != nil {
		if sec.storeDSN, err = secrets.Resolve(ctx, provider, pg.DSNSecret); err != nil {
			return nil, fmt.Errorf("resolve store DSN secret: %w", err)
		}
	}
	if cfg.Spec.Cache != nil && cfg.Spec.Cache.Redis != nil {
		if sec.cachePassword, err = secrets.Resolve(ctx, provider, cfg.Spec.Cache.Redis.PasswordSecret); err != nil {
			return nil, fmt.Errorf("resolve cache password secret: %w", err)
		}
	}
	if cfg.Spec.Events != nil {
		if sec.eventsPassword, err = secrets.Resolve(ctx, provider, cfg.Spec.Events.PasswordSecret); err != nil {
			return nil, fmt.Errorf("resolve events password secret: %w", err)
		}
	}
	if sec.jwtStaticKey, err = secrets.Resolve(ctx, provider, cfg.Spec.Auth.StaticSecretName); err != nil {
		return nil, fmt.Errorf("resolve auth static secret: %w", err)
	}

	return sec, nil
}

// loadRouteTable seeds the registry from the configuration file and
// the backing store. Stored routes win over config routes with the
// same id; later route change events amend the table at runtime.
func loadRouteTable(ctx context.Context, cfg *config.GatewayConfig, st store.Store, registry *router.Registry, logger observability.Logger) error {
	defs := make([]router.RouteDefinition, 0, len(cfg.Spec.Routes))
	for _, rc := range cfg.Spec.Routes {
		defs = append(defs, router.RouteDefinition{
			ID:         rc.ID,
			Path:       rc.Path,
			BackendURL: rc.BackendURL,
			Service:    rc.Service,
		})
	}
	if err := registry.Replace(defs); err != nil {
		return fmt.Errorf("load configured routes: %w", err)
	}

	stored, err := st.Routes(ctx)
	if err != nil {
		return fmt.Errorf("load stored routes: %w", err)
	}
	for _, def := range stored {
		if err := registry.Upsert(def); err != nil {
			logger.Warn("skipping invalid stored route",
				observability.String("route_id", def.ID),
				observability.Error(err),
			)
		}
	}

	logger.Info("route table loaded", observability.Int("routes", registry.Size()))
	return nil
}

// proxyChainDeps carries everything the middleware chain needs.
type proxyChainDeps struct {
	cfg           *config.GatewayConfig
	logger        observability.Logger
	metrics       *observability.Metrics
	registerer    prometheus.Registerer
	tracer        *observability.Tracer
	directory     tenant.Directory
	tenantMetrics *tenant.Metrics
	verifier      auth.Verifier
	registry      *router.Registry
	authorizer    authz.Authorizer
	authzMetrics  *authz.Metrics
	audit         audit.Logger
}

// buildProxyChain assembles the public request path. Listed outermost
// first: recovery, request id, logging, tracing, metrics, tenant slug,
// token verification, route match, enforcement, circuit breaker, proxy.
func buildProxyChain(deps proxyChainDeps) http.Handler {
	mwMetrics := middleware.NewMetricsWithRegisterer(metricsNamespace, deps.registerer)

	var handler http.Handler = proxy.New(deps.registry,
		proxy.WithLogger(deps.logger),
		proxy.WithMetrics(proxy.NewMetricsWithRegisterer(metricsNamespace, deps.registerer)),
	)

	handler = middleware.CircuitBreakerFromConfig(deps.cfg.Spec.Server.CircuitBreaker,
		middleware.WithCircuitBreakerLogger(deps.logger),
		middleware.WithCircuitBreakerMetrics(mwMetrics),
	)(handler)

	handler = authz.Middleware(authz.MiddlewareConfig{
		Authorizer: deps.authorizer,
		Audit:      deps.audit,
		Logger:     deps.logger,
		Metrics:    deps.authzMetrics,
	})(handler)

	handler = router.Middleware(deps.registry, deps.logger)(handler)

	handler = auth.Middleware(auth.MiddlewareConfig{
		Verifier: deps.verifier,
		Enabled:  deps.cfg.Spec.Auth.Enabled,
		Logger:   deps.logger,
	})(handler)

	handler = tenant.Middleware(tenant.MiddlewareConfig{
		Directory:     deps.directory,
		PlatformPaths: deps.cfg.Spec.Tenancy.GetPlatformPaths(),
		RequirePrefix: deps.cfg.Spec.Tenancy.RequirePrefix,
		Logger:        deps.logger,
		Metrics:       deps.tenantMetrics,
	})(handler)

	handler = observability.MetricsMiddleware(deps.metrics, routeService)(handler)
	handler = observability.TracingMiddleware(deps.tracer)(handler)
	handler = middleware.Logging(deps.logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.Recovery(deps.logger, mwMetrics)(handler)

	return handler
}

// routeService attributes request metrics to the matched route's
// service name.
func routeService(ctx context.Context) string {
	if route, ok := router.RouteFromContext(ctx); ok {
		return route.Service
	}
	return "unmatched"
}

// newProxyServer mounts health probes and the metrics endpoint next to
// the proxy chain on the public listener. The probe paths sit on the
// default platform path list so the tenant middleware never sees them.
func newProxyServer(cfg *config.GatewayConfig, metrics *observability.Metrics, checker *health.Checker, chain http.Handler) *http.Server {
	mux := http.NewServeMux()
	if cfg.Spec.Metrics.Enabled {
		mux.Handle(cfg.Spec.Metrics.GetPath(), metrics.Handler())
	}
	checker.Register(mux)
	mux.Handle("/", chain)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Spec.Server.Host, cfg.Spec.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Spec.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Spec.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Spec.Server.IdleTimeout.Duration(),
	}
}

// onConfigReload applies a changed configuration file. Only the route
// table is hot-swapped; listener and store changes need a restart.
func (a *application) onConfigReload(newCfg *config.GatewayConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), readinessCheckTimeout)
	defer cancel()

	if err := loadRouteTable(ctx, newCfg, a.store, a.registry, a.logger); err != nil {
		a.logger.Error("route table reload failed", observability.Error(err))
		return
	}
	a.logger.Info("configuration reloaded",
		observability.Int("routes", a.registry.Size()),
	)
}
