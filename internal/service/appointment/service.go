package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/internal/schedule"
	"github.com/ezhealth/appointment-api/internal/service/notification"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/metrics"
)

// MsgSlotTaken is returned to patients racing for the same slot.
const MsgSlotTaken = "Time slot already booked."

// DoctorLookup resolves doctors, returning AppErrors.
type DoctorLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
}

type Config struct {
	// MeetingLinkTemplate has one %s for the appointment id.
	MeetingLinkTemplate string
	DefaultFee          decimal.Decimal
}

type Service struct {
	repo     repository.AppointmentRepository
	doctors  DoctorLookup
	notifier notification.Notifier
	metrics  *metrics.Metrics
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	doctors DoctorLookup,
	notifier notification.Notifier,
	metrics *metrics.Metrics,
	config Config,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		notifier: notifier,
		metrics:  metrics,
		config:   config,
		logger:   logger.With().Str("service", "appointment").Logger(),
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used for past-date checks.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// MeetingLink derives the consultation URL for an appointment.
func (s *Service) MeetingLink(id uuid.UUID) string {
	return fmt.Sprintf(s.config.MeetingLinkTemplate, id.String())
}

// AvailableSlots lists the catalog slots of doctorID on date that no active
// appointment holds.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, apperrors.Validation("invalid date, expected YYYY-MM-DD", err)
	}

	booked, err := s.repo.BookedSlots(ctx, doctorID, day)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schedule.Available(booked), nil
}

func (s *Service) Book(ctx context.Context, principal model.Principal, req model.BookAppointmentRequest) (*model.Appointment, error) {
	if !principal.Is(model.RolePatient) {
		return nil, apperrors.Forbidden("only patients can book appointments")
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.Validation("invalid doctor id", err)
	}
	day, err := schedule.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, apperrors.Validation("invalid appointment date, expected YYYY-MM-DD", err)
	}
	if day.Before(s.today()) {
		return nil, apperrors.Validation("appointment date cannot be in the past", nil)
	}
	slot, ok := schedule.Normalize(req.AppointmentTime)
	if !ok {
		return nil, apperrors.Validation("invalid time slot", nil)
	}

	amount := s.config.DefaultFee
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, apperrors.Validation("amount cannot be negative", nil)
		}
		amount = *req.Amount
	}

	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsVerified {
		return nil, apperrors.NotFound("doctor", nil)
	}

	department := req.Department
	if department == "" {
		department = doctor.Department
	}

	apt := &model.Appointment{
		PatientID:       principal.ID,
		DoctorID:        doctorID,
		AppointmentDate: day,
		AppointmentTime: slot,
		Department:      department,
		Status:          model.AppointmentStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Amount:          amount,
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict(MsgSlotTaken, err)
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.Bookings.Inc()

	s.logger.Info().
		Str("appointment_id", apt.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("slot", day.Format(schedule.DateLayout)+" "+slot).
		Msg("appointment booked")

	s.notifier.AppointmentChanged(ctx, model.EventAppointmentBooked, apt)
	return apt, nil
}

// Cancel lets the booking patient cancel a Pending or Accepted appointment.
func (s *Service) Cancel(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Is(model.RolePatient) || !apt.OwnedByPatient(principal.ID) {
		return nil, apperrors.Forbidden("you can only cancel your own appointments")
	}
	if !cancellable(apt.Status) {
		return nil, apperrors.InvalidState("Cannot cancel this appointment")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, model.Cancellable, model.AppointmentStatusCancelled, "")
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			// the status moved out of the cancellable set meanwhile
			return nil, apperrors.InvalidState("Cannot cancel this appointment")
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.Cancellations.Inc()

	s.notifier.AppointmentChanged(ctx, model.EventAppointmentCancelled, updated)
	return updated, nil
}

// UpdateStatus applies a doctor's status change to one of their appointments.
func (s *Service) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, to model.AppointmentStatus) (*model.Appointment, error) {
	if !model.DoctorSettable(to) {
		return nil, apperrors.Validation("invalid status", nil)
	}

	apt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Is(model.RoleDoctor) || !apt.OwnedByDoctor(principal.ID) {
		return nil, apperrors.Forbidden("you can only update your own appointments")
	}

	if apt.Status == to && !to.IsTerminal() {
		return apt, nil
	}
	if !model.CanTransition(apt.Status, to) {
		return nil, apperrors.InvalidState(fmt.Sprintf("cannot change status from %s to %s", apt.Status, to))
	}

	var link string
	if to == model.AppointmentStatusAccepted {
		link = s.MeetingLink(apt.ID)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, []model.AppointmentStatus{apt.Status}, to, link)
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, apperrors.Conflict("appointment was changed by another request, please retry", err)
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", string(apt.Status)).
		Str("to", string(to)).
		Msg("appointment status updated")

	s.notifier.AppointmentChanged(ctx, model.StatusEvent(to), updated)
	return updated, nil
}

// MarkVisited records that the patient attended an Accepted or Completed appointment.
func (s *Service) MarkVisited(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Is(model.RoleDoctor) || !apt.OwnedByDoctor(principal.ID) {
		return nil, apperrors.Forbidden("you can only update your own appointments")
	}
	if apt.Status != model.AppointmentStatusAccepted && apt.Status != model.AppointmentStatusCompleted {
		return nil, apperrors.InvalidState("only accepted or completed appointments can be marked visited")
	}

	updated, err := s.repo.MarkVisited(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return updated, nil
}

func (s *Service) ListForDoctor(ctx context.Context, principal model.Principal) ([]*model.Appointment, error) {
	if !principal.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("doctor access required")
	}
	apts, err := s.repo.ListByDoctor(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return nonNil(apts), nil
}

func (s *Service) ListForPatient(ctx context.Context, principal model.Principal) ([]*model.Appointment, error) {
	if !principal.Is(model.RolePatient) {
		return nil, apperrors.Forbidden("patient access required")
	}
	apts, err := s.repo.ListByPatient(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return nonNil(apts), nil
}

func (s *Service) ListAll(ctx context.Context, principal model.Principal) ([]*model.AppointmentView, error) {
	if !principal.Is(model.RoleAdmin) {
		return nil, apperrors.Forbidden("admin access required")
	}
	views, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if views == nil {
		views = []*model.AppointmentView{}
	}
	return views, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cancellable(status model.AppointmentStatus) bool {
	for _, s := range model.Cancellable {
		if s == status {
			return true
		}
	}
	return false
}

func nonNil(apts []*model.Appointment) []*model.Appointment {
	if apts == nil {
		return []*model.Appointment{}
	}
	return apts
}
