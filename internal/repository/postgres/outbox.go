package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ezhealth/appointment-api/internal/model"
)

// staleClaimAfter is how long a claimed event may sit in processing before
// another worker reclaims it.
const staleClaimAfter = 5 * time.Minute

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, aggregate_id, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// ClaimPending flips due events to processing in one statement so that
// concurrent workers never receive the same row.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events o
		SET status = 'processing', updated_at = NOW()
		FROM (
			SELECT id
			FROM outbox_events
			WHERE (status IN ('pending', 'retry') AND (retry_at IS NULL OR retry_at <= NOW()))
			OR (status = 'processing' AND updated_at < $2)
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		) due
		WHERE o.id = due.id
		RETURNING o.id, o.event_type, o.aggregate_id, o.payload, o.status,
			o.error_message, o.retry_count, o.retry_at, o.created_at,
			o.updated_at, o.processed_at
	`
	var events []*model.OutboxEvent
	staleBefore := time.Now().UTC().Add(-staleClaimAfter)
	if err := r.db.SelectContext(ctx, &events, query, limit, staleBefore); err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	return events, nil
}

// UpdateStatus records the outcome of a delivery attempt. Retry and failed
// outcomes count as attempts; a failed event is also copied to the dead
// letter table in the same transaction.
func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1::text,
			error_message = $2,
			retry_at = $3,
			retry_count = retry_count + CASE WHEN $1::text IN ('retry', 'failed') THEN 1 ELSE 0 END,
			processed_at = CASE WHEN $1::text = 'processed' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $4
	`
	if status != model.OutboxStatusFailed {
		if _, err := r.db.ExecContext(ctx, query, string(status), errorMessage, retryAt, id); err != nil {
			return fmt.Errorf("failed to update outbox event: %w", err)
		}
		return nil
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, string(status), errorMessage, retryAt, id); err != nil {
			return fmt.Errorf("failed to update outbox event: %w", err)
		}
		deadLetter := `
			INSERT INTO outbox_events_deadletter (
				event_id, event_type, payload, error_message, retry_count, last_retry_at, created_at
			)
			SELECT id, event_type, payload, error_message, retry_count, updated_at, NOW()
			FROM outbox_events
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, deadLetter, id); err != nil {
			return fmt.Errorf("failed to move outbox event to dead letter: %w", err)
		}
		return nil
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
