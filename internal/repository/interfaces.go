package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ezhealth/appointment-api/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken is returned when an active appointment already holds the
	// (doctor, date, time) slot.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrStaleWrite is returned when a conditional update matched no row
	// because the record changed since it was read.
	ErrStaleWrite = errors.New("record changed concurrently")
)

type AppointmentRepository interface {
	// Create inserts apt unless an active appointment holds the same slot.
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	GetByOrderRef(ctx context.Context, orderRef string) (*model.Appointment, error)
	// BookedSlots returns the slot labels held by active appointments.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
	ListAll(ctx context.Context) ([]*model.AppointmentView, error)

	// UpdateStatus moves the appointment to `to` only while its status is one
	// of from. A non-empty meetingLink is stored only if none is set yet.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, meetingLink string) (*model.Appointment, error)
	MarkVisited(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// AttachOrder records a new gateway order unless the appointment is already paid.
	AttachOrder(ctx context.Context, id uuid.UUID, orderRef string, amount decimal.Decimal) (*model.Appointment, error)
	// MarkPaid settles the payment for orderRef unless it is already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, orderRef, paymentRef, signature string) (*model.Appointment, error)
	// MarkPaymentFailed moves a pending payment for orderRef to Failed.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, orderRef string) (*model.Appointment, error)
}

type DoctorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	ListVerified(ctx context.Context) ([]*model.Doctor, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*model.Doctor, error)
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *model.Prescription) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending marks up to limit due events as processing and returns them.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
