package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/email"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository/memory"
	"github.com/ezhealth/appointment-api/pkg/messaging"
	"github.com/ezhealth/appointment-api/pkg/metrics"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []messaging.Message
	channels []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.(messaging.Message))
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMailer struct {
	sent []email.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	store     *memory.Store
	publisher *fakePublisher
	mailer    *fakeMailer
	processor *OutboxProcessor
	patient   *model.User
	doctor    *model.Doctor
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	store := memory.NewStore()
	patient := &model.User{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Role: model.RolePatient}
	doctor := &model.Doctor{FirstName: "Vikram", LastName: "Sen", IsVerified: true}
	store.AddUser(patient)
	store.AddDoctor(doctor)

	f := &fixture{
		store:     store,
		publisher: &fakePublisher{},
		mailer:    &fakeMailer{},
		patient:   patient,
		doctor:    doctor,
	}
	f.processor = NewOutboxProcessor(
		store.Outbox(), store.Users(), store.Doctors(),
		f.publisher, f.mailer,
		OutboxProcessorConfig{
			BatchSize:    10,
			PollInterval: time.Second,
			MaxAttempts:  maxAttempts,
			RetryDelay:   time.Minute,
			Retention:    time.Hour,
		},
		zerolog.Nop(),
		metrics.New("test", nil),
	)
	return f
}

func (f *fixture) enqueue(t *testing.T, eventType string) {
	t.Helper()
	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID:   uuid.New(),
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		AppointmentDate: "2025-06-01",
		AppointmentTime: "10:00 AM",
		Status:          model.AppointmentStatusAccepted,
		MeetingLink:     "https://meet.jit.si/ezhealth-1",
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Outbox().Create(context.Background(), &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}))
}

func TestProcessBatchPublishesAndEmails(t *testing.T) {
	f := newFixture(t, 3)
	f.enqueue(t, model.EventAppointmentAccepted)
	f.enqueue(t, model.EventAppointmentBooked)

	n, err := f.processor.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, f.publisher.messages, 2)
	assert.Equal(t, []string{"appointments", "appointments"}, f.publisher.channels)
	assert.Equal(t, model.EventAppointmentAccepted, f.publisher.messages[0].Type)

	// only the accepted event reaches the patient's inbox
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "asha@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "Your appointment has been accepted", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].Body, "Dr. Vikram Sen")
	assert.Contains(t, f.mailer.sent[0].Body, "https://meet.jit.si/ezhealth-1")

	for _, e := range f.store.OutboxEvents() {
		assert.Equal(t, model.OutboxStatusProcessed, e.Status)
		assert.NotNil(t, e.ProcessedAt)
	}
}

func TestProcessBatchSchedulesRetry(t *testing.T) {
	f := newFixture(t, 3)
	f.mailer.err = errors.New("smtp down")
	f.enqueue(t, model.EventAppointmentCancelled)

	_, err := f.processor.ProcessBatch(context.Background())
	require.NoError(t, err)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusRetry, events[0].Status)
	assert.Equal(t, 1, events[0].RetryCount)
	require.NotNil(t, events[0].RetryAt)
	assert.True(t, events[0].RetryAt.After(time.Now()))
	require.NotNil(t, events[0].ErrorMessage)
	assert.Contains(t, *events[0].ErrorMessage, "smtp down")

	// not due yet
	n, err := f.processor.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchMarksFailedAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, 1)
	f.publisher.err = errors.New("redis down")
	f.enqueue(t, model.EventAppointmentBooked)

	_, err := f.processor.ProcessBatch(context.Background())
	require.NoError(t, err)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusFailed, events[0].Status)
}

func TestBackoffDoubles(t *testing.T) {
	f := newFixture(t, 3)

	assert.Equal(t, time.Minute, f.processor.backoff(0))
	assert.Equal(t, 2*time.Minute, f.processor.backoff(1))
	assert.Equal(t, 8*time.Minute, f.processor.backoff(3))
	assert.Equal(t, f.processor.backoff(10), f.processor.backoff(50))
}

func TestCleanupRemovesOldProcessedEvents(t *testing.T) {
	f := newFixture(t, 3)
	f.enqueue(t, model.EventAppointmentBooked)

	_, err := f.processor.ProcessBatch(context.Background())
	require.NoError(t, err)

	f.processor.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, f.processor.Cleanup(context.Background()))
	assert.Empty(t, f.store.OutboxEvents())
}
