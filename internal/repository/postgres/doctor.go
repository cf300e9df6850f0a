package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
)

const doctorColumns = `
	id, first_name, last_name, email, phone, gender, specialization,
	department, experience, profile_image, is_verified, created_at, updated_at`

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := r.getOne(ctx, &doctor, repository.ErrNotFound, query, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) ListVerified(ctx context.Context) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctors
		WHERE is_verified = TRUE
		ORDER BY last_name, first_name`

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*model.Doctor, error) {
	query := `
		UPDATE doctors
		SET is_verified = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + doctorColumns

	var doctor model.Doctor
	if err := r.getOne(ctx, &doctor, repository.ErrNotFound, query, verified, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify doctor: %w", err)
	}
	return &doctor, nil
}
