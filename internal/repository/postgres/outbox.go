package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const outboxColumns = `id, event_type, payload, status, error_message, retry_count, retry_at,
	created_at, processed_at, updated_at`

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) (err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "insert", "outbox event", start, err) }(time.Now())

	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	event.ID = uuid.New()
	event.CreatedAt = r.now()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// GetPendingEvents returns pending events and retries that are due, oldest first.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) (events []*model.OutboxEvent, err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "select_pending", "outbox event", start, err) }(time.Now())

	query := `
		SELECT ` + outboxColumns + `
		FROM outbox_events
		WHERE status IN ('pending', 'retry')
		AND (retry_at IS NULL OR retry_at <= $1)
		ORDER BY created_at ASC
		LIMIT $2
	`
	events = []*model.OutboxEvent{}
	if err = r.db.SelectContext(ctx, &events, query, r.now(), limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) (err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "mark_processed", "outbox event", start, err) }(time.Now())

	now := r.now()
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = NULL, retry_at = NULL, processed_at = $2, updated_at = $2
		WHERE id = $3
	`
	res, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, now, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) (err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "mark_retry", "outbox event", start, err) }(time.Now())

	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_at = $3, retry_count = retry_count + 1, updated_at = $4
		WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, query, model.OutboxStatusRetry, errMsg, retryAt, r.now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "mark_failed", "outbox event", start, err) }(time.Now())

	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_at = NULL, updated_at = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, model.OutboxStatusFailed, errMsg, r.now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (n int64, err error) {
	defer func(start time.Time) { err = r.done("outbox_events", "delete_processed", "outbox event", start, err) }(time.Now())

	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
