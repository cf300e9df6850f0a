package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/internal/email"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/pkg/messaging"
	"github.com/ezhealth/appointment-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel      string
	BatchSize    int
	PollInterval time.Duration
	// MaxAttempts is the number of deliveries tried before an event is marked failed.
	MaxAttempts int
	// RetryDelay is the first backoff step; it doubles on every attempt.
	RetryDelay time.Duration
	// Retention is how long processed events are kept; zero disables cleanup.
	Retention time.Duration
}

type OutboxProcessor struct {
	repo      repository.OutboxRepository
	users     repository.UserRepository
	doctors   repository.DoctorRepository
	publisher messaging.Publisher
	mailer    email.Service
	config    OutboxProcessorConfig
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	users repository.UserRepository,
	doctors repository.DoctorRepository,
	publisher messaging.Publisher,
	mailer email.Service,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxAttempts <= 0 {
		panic("MaxAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.Channel == "" {
		config.Channel = "appointments"
	}

	return &OutboxProcessor{
		repo:      repo,
		users:     users,
		doctors:   doctors,
		publisher: publisher,
		mailer:    mailer,
		config:    config,
		logger:    logger.With().Str("component", "outbox-processor").Logger(),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	p.logger.Info().Msg("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to process events")
			}
		case <-cleanup.C:
			if err := p.Cleanup(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and delivers them. It returns
// the number of events claimed.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_outbox_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Warn().Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Int("attempt", event.RetryCount+1).
				Msg("event delivery failed")
		}
	}
	return len(events), nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := p.deliver(ctx, event)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusProcessed, nil, nil)
	}

	errStr := err.Error()
	if event.RetryCount+1 >= p.config.MaxAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &errStr, nil); updateErr != nil {
			p.logger.Error().Err(updateErr).Str("event_id", event.ID.String()).Msg("failed to update event status")
		}
		return err
	}

	retryAt := p.now().Add(p.backoff(event.RetryCount))
	if updateErr := p.repo.UpdateStatus(ctx, event.ID, model.OutboxStatusRetry, &errStr, &retryAt); updateErr != nil {
		p.logger.Error().Err(updateErr).Str("event_id", event.ID.String()).Msg("failed to schedule retry")
	}
	return err
}

func (p *OutboxProcessor) backoff(attempt int) time.Duration {
	if attempt > 10 {
		attempt = 10
	}
	return p.config.RetryDelay * time.Duration(1<<attempt)
}

func (p *OutboxProcessor) deliver(ctx context.Context, event *model.OutboxEvent) error {
	if err := p.publisher.Publish(ctx, p.config.Channel, messaging.Message{
		Type:    event.EventType,
		Payload: event.Payload,
	}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	if !notifiesPatient(event.EventType) {
		return nil
	}

	var payload model.AppointmentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	patient, err := p.users.Get(ctx, payload.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn().Str("patient_id", payload.PatientID.String()).Msg("patient missing, skipping email")
			return nil
		}
		return fmt.Errorf("load patient: %w", err)
	}

	doctorName := "your doctor"
	if doctor, err := p.doctors.Get(ctx, payload.DoctorID); err == nil {
		doctorName = "Dr. " + doctor.FullName()
	}

	msg := patientEmail(event.EventType, payload, patient, doctorName)
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

// Cleanup removes processed events older than the retention window.
func (p *OutboxProcessor) Cleanup(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	cutoff := p.now().Add(-p.config.Retention)

	rows, err := p.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "error").Inc()
		return fmt.Errorf("failed to cleanup outbox events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("delete_processed_events", "success").Inc()

	p.logger.Info().Int64("rows", rows).Time("cutoff", cutoff).Msg("cleaned up processed outbox events")
	return nil
}
