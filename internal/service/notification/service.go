// Package notification turns appointment changes into outbox events. The
// outbox worker later publishes them and emails the patient.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/internal/schedule"
)

// Notifier records that something happened to an appointment. Failures are
// logged and never surface to the caller; the state change already happened.
type Notifier interface {
	AppointmentChanged(ctx context.Context, eventType string, apt *model.Appointment)
}

type outboxNotifier struct {
	repo   repository.OutboxRepository
	logger zerolog.Logger
}

func NewOutboxNotifier(repo repository.OutboxRepository, logger zerolog.Logger) Notifier {
	return &outboxNotifier{
		repo:   repo,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

func (n *outboxNotifier) AppointmentChanged(ctx context.Context, eventType string, apt *model.Appointment) {
	if eventType == "" || apt == nil {
		return
	}

	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID:   apt.ID,
		PatientID:       apt.PatientID,
		DoctorID:        apt.DoctorID,
		AppointmentDate: apt.AppointmentDate.Format(schedule.DateLayout),
		AppointmentTime: apt.AppointmentTime,
		Status:          apt.Status,
		PaymentStatus:   apt.PaymentStatus,
		MeetingLink:     apt.MeetingLink,
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error().Err(err).Str("appointment_id", apt.ID.String()).Msg("failed to encode event")
		return
	}

	// the request may already be finishing; the event must still be stored
	ctx = context.WithoutCancel(ctx)
	if err := n.repo.Create(ctx, &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: apt.ID,
		Payload:     payload,
	}); err != nil {
		n.logger.Error().Err(err).
			Str("appointment_id", apt.ID.String()).
			Str("event_type", eventType).
			Msg("failed to enqueue notification")
		return
	}

	n.logger.Debug().
		Str("appointment_id", apt.ID.String()).
		Str("event_type", eventType).
		Msg("notification enqueued")
}

// Nop discards every notification.
type Nop struct{}

func (Nop) AppointmentChanged(context.Context, string, *model.Appointment) {}
