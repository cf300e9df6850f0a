// Package payment creates gateway orders for appointment fees and settles
// them once the checkout signature checks out.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/internal/service/notification"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
	"github.com/ezhealth/appointment-api/pkg/metrics"
	gw "github.com/ezhealth/appointment-api/pkg/payment"
)

const MsgInvalidSignature = "Invalid payment signature"

type Config struct {
	Currency string
	// Timeout bounds a single gateway call; zero means the request context decides.
	Timeout time.Duration
}

type Service struct {
	repo     repository.AppointmentRepository
	gateway  gw.Gateway
	signer   *gw.Signer
	notifier notification.Notifier
	metrics  *metrics.Metrics
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	gateway gw.Gateway,
	signer *gw.Signer,
	notifier notification.Notifier,
	metrics *metrics.Metrics,
	config Config,
	logger zerolog.Logger,
) *Service {
	if config.Currency == "" {
		config.Currency = "INR"
	}
	return &Service{
		repo:     repo,
		gateway:  gateway,
		signer:   signer,
		notifier: notifier,
		metrics:  metrics,
		config:   config,
		logger:   logger.With().Str("service", "payment").Logger(),
		now:      time.Now,
	}
}

// CreateOrder opens a gateway order for the appointment fee and records its
// reference on the appointment, returning the order and the updated appointment.
func (s *Service) CreateOrder(ctx context.Context, principal model.Principal, req model.CreateOrderRequest) (*gw.Order, *model.Appointment, error) {
	if !principal.Is(model.RolePatient) {
		return nil, nil, apperrors.Forbidden("only patients can pay for appointments")
	}

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, nil, apperrors.Validation("invalid appointment id", err)
	}
	if !req.Amount.IsPositive() {
		return nil, nil, apperrors.Validation("amount must be greater than zero", nil)
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NotFound("appointment", err)
		}
		return nil, nil, apperrors.Internal(err)
	}
	if !apt.OwnedByPatient(principal.ID) {
		return nil, nil, apperrors.Forbidden("you can only pay for your own appointments")
	}
	switch {
	case apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusRejected:
		return nil, nil, apperrors.InvalidState(fmt.Sprintf("cannot pay for a %s appointment", apt.Status))
	case apt.PaymentStatus == model.PaymentStatusPaid:
		return nil, nil, apperrors.InvalidState("appointment is already paid")
	}

	gctx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	order, err := s.gateway.CreateOrder(gctx, gw.OrderRequest{
		AmountMinor: req.Amount.Shift(2).Round(0).IntPart(),
		Currency:    s.config.Currency,
		Receipt:     receipt(id, s.now()),
		Notes:       map[string]string{"appointmentId": id.String()},
	})
	if err != nil {
		s.metrics.PaymentOrders.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("appointment_id", id.String()).Msg("gateway order creation failed")
		return nil, nil, apperrors.Gateway("failed to create payment order", err)
	}

	updated, err := s.repo.AttachOrder(ctx, id, order.ID, req.Amount)
	if err != nil {
		s.metrics.PaymentOrders.WithLabelValues("error").Inc()
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, nil, apperrors.InvalidState("appointment is already paid")
		}
		return nil, nil, apperrors.Internal(err)
	}
	s.metrics.PaymentOrders.WithLabelValues("success").Inc()

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("order_ref", order.ID).
		Int64("amount_minor", order.Amount).
		Msg("payment order created")
	return order, updated, nil
}

// VerifyPayment checks the checkout signature and marks the appointment paid.
// Repeating a successful verification returns the paid appointment.
func (s *Service) VerifyPayment(ctx context.Context, orderRef, paymentRef, signature string) (*model.Appointment, error) {
	if orderRef == "" || paymentRef == "" || signature == "" {
		return nil, apperrors.Validation("order id, payment id and signature are required", nil)
	}

	apt, err := s.byOrderRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}

	if !s.signer.Verify(orderRef, paymentRef, signature) {
		s.metrics.PaymentVerifications.WithLabelValues("invalid").Inc()
		s.logger.Warn().Str("order_ref", orderRef).Msg("payment signature mismatch")
		return nil, apperrors.Signature(MsgInvalidSignature)
	}

	if apt.PaymentStatus == model.PaymentStatusPaid {
		return s.alreadyPaid(apt, paymentRef)
	}

	updated, err := s.repo.MarkPaid(ctx, apt.ID, orderRef, paymentRef, signature)
	if err != nil {
		if !errors.Is(err, repository.ErrStaleWrite) {
			return nil, apperrors.Internal(err)
		}
		// a concurrent verification may have won
		current, getErr := s.byOrderRef(ctx, orderRef)
		if getErr != nil {
			return nil, getErr
		}
		if current.PaymentStatus == model.PaymentStatusPaid {
			return s.alreadyPaid(current, paymentRef)
		}
		return nil, apperrors.InvalidState("payment state changed, please retry")
	}
	s.metrics.PaymentVerifications.WithLabelValues("valid").Inc()

	s.logger.Info().
		Str("appointment_id", updated.ID.String()).
		Str("order_ref", orderRef).
		Str("payment_ref", paymentRef).
		Msg("payment verified")

	s.notifier.AppointmentChanged(ctx, model.EventPaymentPaid, updated)
	return updated, nil
}

// ReportFailure records a failed checkout for the patient's pending order.
func (s *Service) ReportFailure(ctx context.Context, principal model.Principal, req model.PaymentFailureRequest) (*model.Appointment, error) {
	if !principal.Is(model.RolePatient) {
		return nil, apperrors.Forbidden("only patients can report payment failures")
	}
	if req.OrderID == "" {
		return nil, apperrors.Validation("order id is required", nil)
	}

	apt, err := s.byOrderRef(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !apt.OwnedByPatient(principal.ID) {
		return nil, apperrors.Forbidden("you can only report failures for your own payments")
	}

	switch apt.PaymentStatus {
	case model.PaymentStatusFailed:
		return apt, nil
	case model.PaymentStatusPaid:
		return nil, apperrors.InvalidState("appointment is already paid")
	}

	updated, err := s.repo.MarkPaymentFailed(ctx, apt.ID, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, apperrors.InvalidState("payment state changed, please retry")
		}
		return nil, apperrors.Internal(err)
	}
	s.metrics.PaymentVerifications.WithLabelValues("failed").Inc()

	s.logger.Info().
		Str("appointment_id", apt.ID.String()).
		Str("order_ref", req.OrderID).
		Str("payment_ref", req.PaymentID).
		Str("reason", req.Reason).
		Msg("payment failure reported")
	return updated, nil
}

func (s *Service) alreadyPaid(apt *model.Appointment, paymentRef string) (*model.Appointment, error) {
	if apt.PaymentRef != nil && *apt.PaymentRef == paymentRef {
		s.metrics.PaymentVerifications.WithLabelValues("duplicate").Inc()
		return apt, nil
	}
	return nil, apperrors.InvalidState("appointment is already paid")
}

func (s *Service) byOrderRef(ctx context.Context, orderRef string) (*model.Appointment, error) {
	apt, err := s.repo.GetByOrderRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("order", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// receipt is "apt_<last 8 chars of id>_<unix millis>".
func receipt(id uuid.UUID, at time.Time) string {
	s := id.String()
	return fmt.Sprintf("apt_%s_%d", s[len(s)-8:], at.UnixMilli())
}
