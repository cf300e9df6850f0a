package prescription

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/internal/media"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
)

const (
	folder     = "prescriptions"
	contentPDF = "application/pdf"
)

type Service struct {
	repo         repository.PrescriptionRepository
	appointments repository.AppointmentRepository
	media        media.Store
	logger       zerolog.Logger
}

func NewService(
	repo repository.PrescriptionRepository,
	appointments repository.AppointmentRepository,
	store media.Store,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		media:        store,
		logger:       logger.With().Str("service", "prescription").Logger(),
	}
}

// Upload stores a PDF prescription for one of the doctor's appointments.
func (s *Service) Upload(ctx context.Context, principal model.Principal, req model.UploadPrescriptionRequest, contentType string, file io.Reader) (*model.Prescription, error) {
	if !principal.Is(model.RoleDoctor) {
		return nil, apperrors.Forbidden("only doctors can upload prescriptions")
	}

	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, apperrors.Validation("invalid appointment id", err)
	}
	if file == nil {
		return nil, apperrors.Validation("prescription file is required", nil)
	}
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" && !strings.HasPrefix(ct, contentPDF) {
		return nil, apperrors.Validation(media.ErrNotPDF.Error(), media.ErrNotPDF)
	}

	apt, err := s.appointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !apt.OwnedByDoctor(principal.ID) {
		return nil, apperrors.Forbidden("you can only prescribe for your own appointments")
	}

	url, err := s.media.SavePDF(ctx, folder, file)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrNotPDF) {
			return nil, apperrors.Validation(err.Error(), err)
		}
		return nil, apperrors.Internal(err)
	}

	p := &model.Prescription{
		PatientID:           apt.PatientID,
		DoctorID:            apt.DoctorID,
		AppointmentID:       apt.ID,
		Medications:         pq.StringArray(cleanMedications(req.Medications)),
		Notes:               strings.TrimSpace(req.Notes),
		PrescriptionFileURL: url,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info().
		Str("prescription_id", p.ID.String()).
		Str("appointment_id", apt.ID.String()).
		Msg("prescription uploaded")
	return p, nil
}

func (s *Service) ListForPatient(ctx context.Context, principal model.Principal) ([]*model.Prescription, error) {
	if !principal.Is(model.RolePatient) {
		return nil, apperrors.Forbidden("patient access required")
	}
	list, err := s.repo.ListByPatient(ctx, principal.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return nonNil(list), nil
}

// ListForAppointment is open to the appointment's patient and doctor.
func (s *Service) ListForAppointment(ctx context.Context, principal model.Principal, id uuid.UUID) ([]*model.Prescription, error) {
	apt, err := s.appointment(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case principal.Is(model.RolePatient) && apt.OwnedByPatient(principal.ID):
	case principal.Is(model.RoleDoctor) && apt.OwnedByDoctor(principal.ID):
	default:
		return nil, apperrors.Forbidden("you cannot view prescriptions for this appointment")
	}

	list, err := s.repo.ListByAppointment(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return nonNil(list), nil
}

func (s *Service) appointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

func cleanMedications(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func nonNil(list []*model.Prescription) []*model.Prescription {
	if list == nil {
		return []*model.Prescription{}
	}
	return list
}
