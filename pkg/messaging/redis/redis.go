package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

// Publisher sends messages over Redis pub/sub behind a circuit breaker.
type Publisher struct {
	client  redis.UniversalClient
	cb      *circuitbreaker.CircuitBreaker
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Dial parses the URL, connects and pings the server.
func Dial(ctx context.Context, config Config, logger zerolog.Logger, m *metrics.Metrics) (*Publisher, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewPublisher(client, circuitbreaker.Settings{}, logger, m), nil
}

// NewPublisher wraps an existing client. Zero breaker settings get defaults.
func NewPublisher(client redis.UniversalClient, breaker circuitbreaker.Settings, logger zerolog.Logger, m *metrics.Metrics) *Publisher {
	if breaker.Name == "" {
		breaker.Name = "redis-publisher"
	}
	if breaker.MaxRequests == 0 {
		breaker.MaxRequests = 1
	}
	if breaker.Interval == 0 {
		breaker.Interval = 10 * time.Second
	}
	if breaker.Timeout == 0 {
		breaker.Timeout = 5 * time.Second
	}
	if breaker.OnStateChange == nil {
		breaker.OnStateChange = func(name, from, to string) {
			logger.Warn().Str("breaker", name).Str("from", from).Str("to", to).Msg("circuit breaker state changed")
		}
	}

	return &Publisher{
		client:  client,
		cb:      circuitbreaker.NewCircuitBreaker(breaker),
		logger:  logger,
		metrics: m,
	}
}

func (p *Publisher) Publish(ctx context.Context, channel string, msg messaging.Message) (err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveRedis("publish", start, err) }()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.cb.Execute(func() error {
		if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish %s: %w", msg.Type, err)
		}
		return nil
	})
}

// State reports the breaker state.
func (p *Publisher) State() string {
	return p.cb.State()
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
