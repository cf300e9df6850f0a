package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, doctor_id, appointment_date, appointment_time,
	department, status, payment_status, amount, meeting_link, has_visited,
	order_ref, payment_ref, payment_signature, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	// The partial unique index appointments_active_slot_idx backs the
	// ON CONFLICT target; a cancelled row never holds its slot.
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			department, status, payment_status, amount, meeting_link, has_visited,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (doctor_id, appointment_date, appointment_time)
			WHERE status <> 'Cancelled'
		DO NOTHING
		RETURNING id
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	var id uuid.UUID
	err := r.db.QueryRowxContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.AppointmentDate,
		apt.AppointmentTime,
		apt.Department,
		apt.Status,
		apt.PaymentStatus,
		apt.Amount,
		apt.MeetingLink,
		apt.HasVisited,
		apt.CreatedAt,
		apt.UpdatedAt,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
		return repository.ErrSlotTaken
	case err != nil:
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	if err := r.getOne(ctx, &apt, repository.ErrNotFound, query, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) GetByOrderRef(ctx context.Context, orderRef string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE order_ref = $1`

	var apt model.Appointment
	if err := r.getOne(ctx, &apt, repository.ErrNotFound, query, orderRef); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get appointment by order: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT appointment_time
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND status <> 'Cancelled'
	`
	var slots []string
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	return slots, nil
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY appointment_date DESC, created_at DESC`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, created_at DESC`

	var apts []*model.Appointment
	if err := r.db.SelectContext(ctx, &apts, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return apts, nil
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]*model.AppointmentView, error) {
	query := `
		SELECT
			a.id,
			COALESCE(u.first_name || ' ' || u.last_name, '') AS patient_name,
			COALESCE(d.first_name || ' ' || d.last_name, '') AS doctor_name,
			COALESCE(NULLIF(a.department, ''), d.department, '') AS department,
			a.appointment_date,
			a.appointment_time,
			a.status,
			a.payment_status,
			a.created_at
		FROM appointments a
		LEFT JOIN users u ON u.id = a.patient_id
		LEFT JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.appointment_date DESC, a.created_at DESC
	`
	var views []*model.AppointmentView
	if err := r.db.SelectContext(ctx, &views, query); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return views, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, meetingLink string) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1,
			meeting_link = CASE WHEN $2::text <> '' AND meeting_link = '' THEN $2::text ELSE meeting_link END,
			updated_at = NOW()
		WHERE id = $3
		AND status = ANY($4)
		RETURNING ` + appointmentColumns

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	return r.conditionalUpdate(ctx, "status", query, to, meetingLink, id, pq.Array(statuses))
}

func (r *appointmentRepository) MarkVisited(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET has_visited = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + appointmentColumns

	apt, err := r.conditionalUpdate(ctx, "visited flag", query, id)
	if errors.Is(err, repository.ErrStaleWrite) {
		return nil, repository.ErrNotFound
	}
	return apt, err
}

func (r *appointmentRepository) AttachOrder(ctx context.Context, id uuid.UUID, orderRef string, amount decimal.Decimal) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET order_ref = $1,
			amount = $2,
			payment_status = 'Pending',
			updated_at = NOW()
		WHERE id = $3
		AND payment_status <> 'Paid'
		RETURNING ` + appointmentColumns

	return r.conditionalUpdate(ctx, "order", query, orderRef, amount, id)
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID, orderRef, paymentRef, signature string) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET payment_status = 'Paid',
			payment_ref = $1,
			payment_signature = $2,
			updated_at = NOW()
		WHERE id = $3
		AND order_ref = $4
		AND payment_status <> 'Paid'
		RETURNING ` + appointmentColumns

	return r.conditionalUpdate(ctx, "payment", query, paymentRef, signature, id, orderRef)
}

func (r *appointmentRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID, orderRef string) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET payment_status = 'Failed', updated_at = NOW()
		WHERE id = $1
		AND order_ref = $2
		AND payment_status = 'Pending'
		RETURNING ` + appointmentColumns

	return r.conditionalUpdate(ctx, "payment status", query, id, orderRef)
}

// conditionalUpdate runs an UPDATE ... RETURNING whose WHERE clause guards
// the expected prior state. No returned row means the guard did not hold.
func (r *appointmentRepository) conditionalUpdate(ctx context.Context, what, query string, args ...interface{}) (*model.Appointment, error) {
	var apt model.Appointment
	if err := r.getOne(ctx, &apt, repository.ErrStaleWrite, query, args...); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update appointment %s: %w", what, err)
	}
	return &apt, nil
}
