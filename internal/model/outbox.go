package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusRetry      OutboxStatus = "retry"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Appointment event types
const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentAccepted  = "appointment.accepted"
	EventAppointmentRejected  = "appointment.rejected"
	EventAppointmentCompleted = "appointment.completed"
	EventAppointmentCancelled = "appointment.cancelled"
	EventPaymentPaid          = "payment.paid"
)

// StatusEvent returns the event type announcing a move into s.
func StatusEvent(s AppointmentStatus) string {
	switch s {
	case AppointmentStatusAccepted:
		return EventAppointmentAccepted
	case AppointmentStatusRejected:
		return EventAppointmentRejected
	case AppointmentStatusCompleted:
		return EventAppointmentCompleted
	case AppointmentStatusCancelled:
		return EventAppointmentCancelled
	}
	return ""
}

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"eventType"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregateId"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retryCount"`
	RetryAt      *time.Time      `db:"retry_at" json:"retryAt,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
}

// AppointmentEventPayload is the body of every appointment outbox event.
type AppointmentEventPayload struct {
	AppointmentID   uuid.UUID         `json:"appointmentId"`
	PatientID       uuid.UUID         `json:"patientId"`
	DoctorID        uuid.UUID         `json:"doctorId"`
	AppointmentDate string            `json:"appointmentDate"`
	AppointmentTime string            `json:"appointmentTime"`
	Status          AppointmentStatus `json:"status"`
	PaymentStatus   PaymentStatus     `json:"paymentStatus"`
	MeetingLink     string            `json:"meetingLink,omitempty"`
	OccurredAt      time.Time         `json:"occurredAt"`
}
