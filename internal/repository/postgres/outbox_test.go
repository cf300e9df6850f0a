package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/model"
)

func TestOutboxRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)

	event := &model.OutboxEvent{
		EventType:   model.EventAppointmentBooked,
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`{"status":"Pending"}`),
	}

	mock.ExpectExec(`INSERT INTO outbox_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.Equal(t, model.OutboxStatusPending, event.Status)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, repo.Create(context.Background(), &model.OutboxEvent{EventType: "x"}))
}

func TestOutboxRepository_ClaimPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "event_type", "aggregate_id", "payload", "status", "error_message",
		"retry_count", "retry_at", "created_at", "updated_at", "processed_at",
	}).AddRow(
		uuid.New().String(), model.EventAppointmentAccepted, uuid.New().String(),
		[]byte(`{"status":"Accepted"}`), "processing", nil, 1, nil, now, now, nil,
	)

	mock.ExpectQuery(`UPDATE outbox_events o SET status = 'processing'.* FOR UPDATE SKIP LOCKED`).
		WithArgs(10, sqlmock.AnyArg()).
		WillReturnRows(rows)

	events, err := repo.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusProcessing, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	assert.JSONEq(t, `{"status":"Accepted"}`, string(events[0].Payload))
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	t.Run("processed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOutboxRepository(db)
		id := uuid.New()

		mock.ExpectExec(`UPDATE outbox_events SET status = \$1::text`).
			WithArgs("processed", nil, nil, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), id, model.OutboxStatusProcessed, nil, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed moves to dead letter", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOutboxRepository(db)
		id := uuid.New()
		msg := "smtp unavailable"

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE outbox_events SET status = \$1::text`).
			WithArgs("failed", &msg, nil, id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO outbox_events_deadletter`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.UpdateStatus(context.Background(), id, model.OutboxStatusFailed, &msg, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dead letter error rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewOutboxRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE outbox_events`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO outbox_events_deadletter`).WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		err := repo.UpdateStatus(context.Background(), uuid.New(), model.OutboxStatusFailed, nil, nil)
		assert.ErrorContains(t, err, "dead letter")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_DeleteProcessedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepository(db)
	before := time.Now().Add(-72 * time.Hour)

	mock.ExpectExec(`DELETE FROM outbox_events WHERE status = 'processed'`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteProcessedBefore(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
