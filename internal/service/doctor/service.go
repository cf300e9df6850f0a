// Package doctor serves the doctor directory with an in-process cache in
// front of the repository.
package doctor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
)

const verifiedListKey = "doctors:verified"

type Service struct {
	repo   repository.DoctorRepository
	cache  *cache.Cache
	logger zerolog.Logger
}

func NewService(repo repository.DoctorRepository, ttl, cleanupInterval time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache.New(ttl, cleanupInterval),
		logger: logger.With().Str("service", "doctor").Logger(),
	}
}

func doctorKey(id uuid.UUID) string {
	return "doctor:" + id.String()
}

// Get returns the doctor with id, from cache when possible.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.cache.Get(doctorKey(id)); ok {
		d := *cached.(*model.Doctor)
		return &d, nil
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.cache.SetDefault(doctorKey(id), d)
	cp := *d
	return &cp, nil
}

func (s *Service) ListVerified(ctx context.Context) ([]*model.Doctor, error) {
	if cached, ok := s.cache.Get(verifiedListKey); ok {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.repo.ListVerified(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}

	s.cache.SetDefault(verifiedListKey, doctors)
	return doctors, nil
}

// Verify marks a doctor as verified. Admin only.
func (s *Service) Verify(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Doctor, error) {
	if !principal.Is(model.RoleAdmin) {
		return nil, apperrors.Forbidden("only admins can verify doctors")
	}

	d, err := s.repo.SetVerified(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.cache.Delete(doctorKey(id))
	s.cache.Delete(verifiedListKey)

	s.logger.Info().
		Str("doctor_id", id.String()).
		Str("admin_id", principal.ID.String()).
		Msg("doctor verified")
	return d, nil
}
