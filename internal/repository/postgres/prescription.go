package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ezhealth/appointment-api/internal/model"
)

const prescriptionColumns = `
	id, patient_id, doctor_id, appointment_id, medications, notes,
	prescription_file_url, issued_at`

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (` + prescriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.PatientID,
		p.DoctorID,
		p.AppointmentID,
		p.Medications,
		p.Notes,
		p.PrescriptionFileURL,
		p.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE patient_id = $1
		ORDER BY issued_at DESC`

	var out []*model.Prescription
	if err := r.db.SelectContext(ctx, &out, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return out, nil
}

func (r *prescriptionRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE appointment_id = $1
		ORDER BY issued_at DESC`

	var out []*model.Prescription
	if err := r.db.SelectContext(ctx, &out, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list appointment prescriptions: %w", err)
	}
	return out, nil
}
