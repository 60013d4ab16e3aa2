package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of publish attempts within one poll.
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxRetries is the number of polls an event may be rescheduled for before it is marked failed.
	MaxRetries int
	Channel    string
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return fmt.Errorf("retry attempts must be greater than 0")
	case c.RetryDelay <= 0:
		return fmt.Errorf("retry delay must be greater than 0")
	case c.MaxRetries <= 0:
		return fmt.Errorf("max retries must be greater than 0")
	case c.Channel == "":
		return fmt.Errorf("channel is required")
	}
	return nil
}

// OutboxProcessor relays pending outbox events to the publisher.
type OutboxProcessor struct {
	repo      repository.OutboxRepository
	publisher messaging.Publisher
	config    OutboxProcessorConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	publisher messaging.Publisher,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OutboxProcessor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}, nil
}

func (p *OutboxProcessor) WithClock(now func() time.Time) *OutboxProcessor {
	p.now = now
	return p
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch handles one poll and returns the number of events published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()

	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer p.metrics.OutboxBatch(len(events), start)

	published := 0
	for _, e := range events {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if err := p.processEvent(ctx, e); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", e.ID.String(),
				"event_type", e.EventType)
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, e *model.OutboxEvent) error {
	msg := messaging.FromOutbox(e)
	publish := func() error {
		return p.publisher.Publish(ctx, p.config.Channel, msg)
	}

	err := backoff.RetryNotify(publish, p.backOff(ctx), func(err error, wait time.Duration) {
		p.logger.Warn("Retry publishing event",
			"event_id", e.ID.String(), "wait", wait.String(), "error", err.Error())
	})
	if err == nil {
		p.metrics.OutboxResult(e.EventType, true, false)
		if err := p.repo.MarkProcessed(ctx, e.ID); err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		return nil
	}

	errMsg := err.Error()
	if e.RetryCount+1 >= p.config.MaxRetries {
		p.metrics.OutboxResult(e.EventType, false, false)
		if updateErr := p.repo.MarkFailed(ctx, e.ID, errMsg); updateErr != nil {
			return fmt.Errorf("failed to mark event failed: %w", updateErr)
		}
		return fmt.Errorf("giving up after %d polls: %w", e.RetryCount+1, err)
	}

	p.metrics.OutboxResult(e.EventType, false, true)
	if updateErr := p.repo.MarkRetry(ctx, e.ID, errMsg, p.now().Add(p.rescheduleDelay(e.RetryCount))); updateErr != nil {
		return fmt.Errorf("failed to reschedule event: %w", updateErr)
	}
	return err
}

func (p *OutboxProcessor) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.RetryDelay
	b.MaxInterval = 10 * p.config.RetryDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.config.RetryAttempts-1)), ctx)
}

// rescheduleDelay doubles per earlier reschedule, capped at one hour.
func (p *OutboxProcessor) rescheduleDelay(retryCount int) time.Duration {
	d := p.config.PollInterval
	for i := 0; i < retryCount && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
