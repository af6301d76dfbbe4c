package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/router"
)

// Invalidator evicts cached permission snapshots. The authorizer
// satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string, userIDs ...string) error
}

// RouteTable is the slice of the route registry the consumer drives.
type RouteTable interface {
	Upsert(def router.RouteDefinition) error
	Remove(id string) error
	Replace(defs []router.RouteDefinition) error
}

// Consumer subscribes to the event channels and applies each event.
// One consumer runs per gateway instance.
type Consumer struct {
	client              *redis.Client
	invalidationChannel string
	routeChannel        string
	invalidator         Invalidator
	routes              RouteTable
	logger              observability.Logger
	metrics             *Metrics

	pendingPassword string

	mu      sync.Mutex
	pubsub  *redis.PubSub
	done    chan struct{}
	started bool
}

// ConsumerOption is a functional option for the consumer.
type ConsumerOption func(*Consumer)

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger observability.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithConsumerMetrics sets the metrics.
func WithConsumerMetrics(metrics *Metrics) ConsumerOption {
	return func(c *Consumer) {
		c.metrics = metrics
	}
}

// WithConsumerPassword sets the broker password. Resolved through the
// secrets provider at composition.
func WithConsumerPassword(password string) ConsumerOption {
	return func(c *Consumer) {
		c.pendingPassword = password
	}
}

// NewConsumer creates a consumer applying invalidations to invalidator
// and route changes to routes. Call Start to begin consuming.
func NewConsumer(cfg *config.EventsConfig, invalidator Invalidator, routes RouteTable, opts ...ConsumerOption) (*Consumer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("%w: consumer requires enabled events", ErrInvalidConfig)
	}
	if invalidator == nil {
		return nil, errors.New("events: invalidator is required")
	}
	if routes == nil {
		return nil, errors.New("events: route table is required")
	}

	c := &Consumer{
		invalidationChannel: cfg.GetInvalidationChannel(),
		routeChannel:        cfg.GetRouteChannel(),
		invalidator:         invalidator,
		routes:              routes,
		logger:              observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	client, err := newRedisClient(cfg, c.pendingPassword)
	if err != nil {
		return nil, err
	}
	c.client = client
	c.pendingPassword = ""

	return c, nil
}

// Start subscribes and launches the consumption loop. The loop runs
// until ctx is canceled or Close is called; the client reconnects and
// resubscribes on broker hiccups by itself.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New("events: consumer already started")
	}

	c.pubsub = c.client.Subscribe(ctx, c.invalidationChannel, c.routeChannel)

	// Force the initial subscription so a dead broker fails Start
	// instead of failing silently in the loop.
	if _, err := c.pubsub.Receive(ctx); err != nil {
		_ = c.pubsub.Close()
		c.pubsub = nil
		return fmt.Errorf("%w: subscribe: %v", ErrConnectionFailed, err)
	}

	c.done = make(chan struct{})
	c.started = true

	go c.run(ctx, c.pubsub.Channel(), c.done)

	c.logger.Info("event consumer subscribed",
		observability.String("invalidation_channel", c.invalidationChannel),
		observability.String("route_channel", c.routeChannel),
	)

	return nil
}

// run applies messages until the channel closes or ctx ends.
func (c *Consumer) run(ctx context.Context, ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.dispatch(ctx, msg)
		}
	}
}

// dispatch routes a message to its handler. Failures never stop the
// loop: malformed payloads and handler errors are logged and dropped.
func (c *Consumer) dispatch(ctx context.Context, msg *redis.Message) {
	switch msg.Channel {
	case c.invalidationChannel:
		c.handleInvalidation(ctx, msg.Payload)
	case c.routeChannel:
		c.handleRouteChange(ctx, msg.Payload)
	default:
		c.logger.Warn("message on unexpected channel",
			observability.String("channel", msg.Channel))
	}
}

func (c *Consumer) handleInvalidation(ctx context.Context, payload string) {
	var event PermissionInvalidationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.dropMalformed(ctx, c.invalidationChannel, err)
		return
	}
	if err := event.Validate(); err != nil {
		c.dropMalformed(ctx, c.invalidationChannel, err)
		return
	}

	if err := c.invalidator.Invalidate(ctx, event.TenantID, event.AffectedUserIDs...); err != nil {
		c.metrics.RecordEvent(c.invalidationChannel, "error")
		c.logger.Error("failed to apply invalidation event",
			observability.String("tenant_id", event.TenantID),
			observability.Int("users", len(event.AffectedUserIDs)),
			observability.Error(err),
		)
		return
	}

	c.metrics.RecordEvent(c.invalidationChannel, "applied")
	c.logger.Debug("applied invalidation event",
		observability.String("tenant_id", event.TenantID),
		observability.Int("users", len(event.AffectedUserIDs)),
	)
}

func (c *Consumer) handleRouteChange(ctx context.Context, payload string) {
	var event RouteChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.dropMalformed(ctx, c.routeChannel, err)
		return
	}
	if err := event.Validate(); err != nil {
		c.dropMalformed(ctx, c.routeChannel, err)
		return
	}

	if err := c.applyRouteChange(event); err != nil {
		c.metrics.RecordEvent(c.routeChannel, "error")
		c.logger.Error("failed to apply route change event",
			observability.String("action", string(event.Action)),
			observability.Error(err),
		)
		return
	}

	c.metrics.RecordEvent(c.routeChannel, "applied")
	c.logger.Info("applied route change event",
		observability.String("action", string(event.Action)),
		observability.Int("routes", len(event.Routes)),
	)
}

func (c *Consumer) applyRouteChange(event RouteChangeEvent) error {
	switch event.Action {
	case RouteActionUpsert:
		for _, def := range event.Routes {
			if err := c.routes.Upsert(def); err != nil {
				return err
			}
		}
		return nil
	case RouteActionDelete:
		err := c.routes.Remove(event.RouteID)
		if errors.Is(err, router.ErrRouteNotFound) {
			// Deleting an already absent route is a no-op replay.
			return nil
		}
		return err
	case RouteActionReplace:
		return c.routes.Replace(event.Routes)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, event.Action)
	}
}

func (c *Consumer) dropMalformed(ctx context.Context, channel string, err error) {
	c.metrics.RecordEvent(channel, "malformed")
	c.logger.WithContext(ctx).Warn("dropping malformed event",
		observability.String("channel", channel),
		observability.Error(err),
	)
}

// Close stops the loop and releases the broker connection. Safe to
// call before Start.
func (c *Consumer) Close() error {
	c.mu.Lock()
	pubsub := c.pubsub
	done := c.done
	c.pubsub = nil
	c.started = false
	c.mu.Unlock()

	var err error
	if pubsub != nil {
		err = pubsub.Close()
	}
	if done != nil {
		<-done
	}

	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}
