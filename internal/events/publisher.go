package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
	"github.com/cklinker/emfgw/internal/retry"
)

// Publisher sends invalidation and route change events to the broker.
type Publisher interface {
	// PublishInvalidation announces that the named users' permissions
	// may have changed.
	PublishInvalidation(ctx context.Context, event PermissionInvalidationEvent) error

	// PublishRouteChange announces a route table change.
	PublishRouteChange(ctx context.Context, event RouteChangeEvent) error

	// Close releases the broker connection.
	Close() error
}

type redisPublisher struct {
	client              *redis.Client
	invalidationChannel string
	routeChannel        string
	retryCfg            *retry.Config
	logger              observability.Logger
	metrics             *Metrics

	// pendingPassword holds the broker password between option
	// application and client construction; cleared once connected.
	pendingPassword string
}

// PublisherOption is a functional option for the publisher.
type PublisherOption func(*redisPublisher)

// WithPublisherLogger sets the logger.
func WithPublisherLogger(logger observability.Logger) PublisherOption {
	return func(p *redisPublisher) {
		p.logger = logger
	}
}

// WithPublisherMetrics sets the metrics.
func WithPublisherMetrics(metrics *Metrics) PublisherOption {
	return func(p *redisPublisher) {
		p.metrics = metrics
	}
}

// WithPublisherPassword sets the broker password. Resolved through the
// secrets provider at composition.
func WithPublisherPassword(password string) PublisherOption {
	return func(p *redisPublisher) {
		p.pendingPassword = password
	}
}

// NewPublisher creates a publisher for the configured broker. When
// events are disabled a no-op publisher is returned so callers need no
// feature checks.
func NewPublisher(cfg *config.EventsConfig, opts ...PublisherOption) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return &nopPublisher{}, nil
	}

	p := &redisPublisher{
		invalidationChannel: cfg.GetInvalidationChannel(),
		routeChannel:        cfg.GetRouteChannel(),
		retryCfg:            publishRetryConfig(),
		logger:              observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	client, err := newRedisClient(cfg, p.pendingPassword)
	if err != nil {
		return nil, err
	}
	p.client = client
	p.pendingPassword = ""

	p.logger.Info("event publisher connected",
		observability.String("invalidation_channel", p.invalidationChannel),
		observability.String("route_channel", p.routeChannel),
	)

	return p, nil
}

// PublishInvalidation implements Publisher.
func (p *redisPublisher) PublishInvalidation(ctx context.Context, event PermissionInvalidationEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return p.publish(ctx, p.invalidationChannel, event)
}

// PublishRouteChange implements Publisher.
func (p *redisPublisher) PublishRouteChange(ctx context.Context, event RouteChangeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return p.publish(ctx, p.routeChannel, event)
}

func (p *redisPublisher) publish(ctx context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = retry.Do(ctx, p.retryCfg, func() error {
		return p.client.Publish(ctx, channel, data).Err()
	}, &retry.Options{
		ShouldRetry: isRetryableEventError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.logger.Debug("retrying event publish",
				observability.String("channel", channel),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		},
	})
	if err != nil {
		p.metrics.RecordPublish(channel, "error")
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	p.metrics.RecordPublish(channel, "published")
	return nil
}

// Close implements Publisher.
func (p *redisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher returns a publisher that drops every event, for setups
// without an event transport.
func NopPublisher() Publisher {
	return &nopPublisher{}
}

type nopPublisher struct{}

func (*nopPublisher) PublishInvalidation(context.Context, PermissionInvalidationEvent) error {
	return nil
}

func (*nopPublisher) PublishRouteChange(context.Context, RouteChangeEvent) error {
	return nil
}

func (*nopPublisher) Close() error { return nil }

var (
	_ Publisher = (*redisPublisher)(nil)
	_ Publisher = (*nopPublisher)(nil)
)
