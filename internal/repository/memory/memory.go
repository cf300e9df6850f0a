// Package memory provides mutex-guarded in-process repositories with the same
// guarantees as the Postgres ones. It backs local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
	"github.com/ezhealth/appointment-api/internal/schedule"
)

// Store holds every table; the repositories share its lock.
type Store struct {
	mu            sync.RWMutex
	appointments  map[uuid.UUID]*model.Appointment
	doctors       map[uuid.UUID]*model.Doctor
	users         map[uuid.UUID]*model.User
	prescriptions []*model.Prescription
	outbox        []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[uuid.UUID]*model.Appointment),
		doctors:      make(map[uuid.UUID]*model.Doctor),
		users:        make(map[uuid.UUID]*model.User),
	}
}

// AddDoctor seeds a doctor record.
func (s *Store) AddDoctor(d *model.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	s.doctors[d.ID] = &cp
}

// AddUser seeds a patient or admin record.
func (s *Store) AddUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	s.users[u.ID] = &cp
}

// OutboxEvents returns a snapshot of every queued event.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutboxEvent, len(s.outbox))
	for i, e := range s.outbox {
		out[i] = *e
	}
	return out
}

func (s *Store) Appointments() repository.AppointmentRepository { return &appointmentRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository           { return &doctorRepo{s} }
func (s *Store) Users() repository.UserRepository               { return &userRepo{s} }
func (s *Store) Prescriptions() repository.PrescriptionRepository {
	return &prescriptionRepo{s}
}
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{s} }

type appointmentRepo struct{ s *Store }

func slotKey(a *model.Appointment) string {
	return a.DoctorID.String() + "|" + a.AppointmentDate.Format(schedule.DateLayout) + "|" + a.AppointmentTime
}

func (r *appointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := slotKey(apt)
	for _, existing := range r.s.appointments {
		if existing.Status != model.AppointmentStatusCancelled && slotKey(existing) == key {
			return repository.ErrSlotTaken
		}
	}

	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now
	cp := *apt
	r.s.appointments[apt.ID] = &cp
	return nil
}

func (r *appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *appointmentRepo) GetByOrderRef(_ context.Context, orderRef string) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, apt := range r.s.appointments {
		if apt.OrderRef != nil && *apt.OrderRef == orderRef {
			cp := *apt
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *appointmentRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	day := date.Format(schedule.DateLayout)
	var slots []string
	for _, apt := range r.s.appointments {
		if apt.DoctorID == doctorID &&
			apt.AppointmentDate.Format(schedule.DateLayout) == day &&
			apt.Status != model.AppointmentStatusCancelled {
			slots = append(slots, apt.AppointmentTime)
		}
	}
	return slots, nil
}

func (r *appointmentRepo) list(match func(*model.Appointment) bool) []*model.Appointment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Appointment
	for _, apt := range r.s.appointments {
		if match(apt) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].AppointmentDate.After(out[j].AppointmentDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *appointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	return r.list(func(a *model.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *appointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return r.list(func(a *model.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *appointmentRepo) ListAll(_ context.Context) ([]*model.AppointmentView, error) {
	apts := r.list(func(*model.Appointment) bool { return true })

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	views := make([]*model.AppointmentView, 0, len(apts))
	for _, apt := range apts {
		view := &model.AppointmentView{
			ID:              apt.ID,
			Department:      apt.Department,
			AppointmentDate: apt.AppointmentDate,
			AppointmentTime: apt.AppointmentTime,
			Status:          apt.Status,
			PaymentStatus:   apt.PaymentStatus,
			CreatedAt:       apt.CreatedAt,
		}
		if u, ok := r.s.users[apt.PatientID]; ok {
			view.PatientName = u.FullName()
		}
		if d, ok := r.s.doctors[apt.DoctorID]; ok {
			view.DoctorName = d.FullName()
			if view.Department == "" {
				view.Department = d.Department
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// mutate applies fn to the stored appointment while holding the write lock.
// fn returns false when its guard does not hold.
func (r *appointmentRepo) mutate(id uuid.UUID, missing error, fn func(*model.Appointment) bool) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, missing
	}
	if !fn(apt) {
		return nil, repository.ErrStaleWrite
	}
	apt.UpdatedAt = time.Now().UTC()
	cp := *apt
	return &cp, nil
}

func (r *appointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus, meetingLink string) (*model.Appointment, error) {
	return r.mutate(id, repository.ErrStaleWrite, func(a *model.Appointment) bool {
		allowed := false
		for _, s := range from {
			if a.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
		a.Status = to
		if meetingLink != "" && a.MeetingLink == "" {
			a.MeetingLink = meetingLink
		}
		return true
	})
}

func (r *appointmentRepo) MarkVisited(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.mutate(id, repository.ErrNotFound, func(a *model.Appointment) bool {
		a.HasVisited = true
		return true
	})
}

func (r *appointmentRepo) AttachOrder(_ context.Context, id uuid.UUID, orderRef string, amount decimal.Decimal) (*model.Appointment, error) {
	return r.mutate(id, repository.ErrStaleWrite, func(a *model.Appointment) bool {
		if a.PaymentStatus == model.PaymentStatusPaid {
			return false
		}
		ref := orderRef
		a.OrderRef = &ref
		a.Amount = amount
		a.PaymentStatus = model.PaymentStatusPending
		return true
	})
}

func (r *appointmentRepo) MarkPaid(_ context.Context, id uuid.UUID, orderRef, paymentRef, signature string) (*model.Appointment, error) {
	return r.mutate(id, repository.ErrStaleWrite, func(a *model.Appointment) bool {
		if a.OrderRef == nil || *a.OrderRef != orderRef || a.PaymentStatus == model.PaymentStatusPaid {
			return false
		}
		pr, sig := paymentRef, signature
		a.PaymentStatus = model.PaymentStatusPaid
		a.PaymentRef = &pr
		a.PaymentSignature = &sig
		return true
	})
}

func (r *appointmentRepo) MarkPaymentFailed(_ context.Context, id uuid.UUID, orderRef string) (*model.Appointment, error) {
	return r.mutate(id, repository.ErrStaleWrite, func(a *model.Appointment) bool {
		if a.OrderRef == nil || *a.OrderRef != orderRef || a.PaymentStatus != model.PaymentStatusPending {
			return false
		}
		a.PaymentStatus = model.PaymentStatusFailed
		return true
	})
}

type doctorRepo struct{ s *Store }

func (r *doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *doctorRepo) ListVerified(_ context.Context) ([]*model.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Doctor
	for _, d := range r.s.doctors {
		if d.IsVerified {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].LastName+out[i].FirstName) < strings.ToLower(out[j].LastName+out[j].FirstName)
	})
	return out, nil
}

func (r *doctorRepo) SetVerified(_ context.Context, id uuid.UUID, verified bool) (*model.Doctor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.IsVerified = verified
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type prescriptionRepo struct{ s *Store }

func (r *prescriptionRepo) Create(_ context.Context, p *model.Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = time.Now().UTC()
	}
	cp := *p
	r.s.prescriptions = append(r.s.prescriptions, &cp)
	return nil
}

func (r *prescriptionRepo) filter(match func(*model.Prescription) bool) []*model.Prescription {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Prescription
	for i := len(r.s.prescriptions) - 1; i >= 0; i-- {
		if p := r.s.prescriptions[i]; match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (r *prescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	return r.filter(func(p *model.Prescription) bool { return p.PatientID == patientID }), nil
}

func (r *prescriptionRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	return r.filter(func(p *model.Prescription) bool { return p.AppointmentID == appointmentID }), nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending
	cp := *event
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r *outboxRepo) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var out []*model.OutboxEvent
	for _, e := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		due := (e.Status == model.OutboxStatusPending || e.Status == model.OutboxStatusRetry) &&
			(e.RetryAt == nil || !e.RetryAt.After(now))
		if !due {
			continue
		}
		e.Status = model.OutboxStatusProcessing
		e.UpdatedAt = now
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID != id {
			continue
		}
		now := time.Now().UTC()
		e.Status = status
		e.ErrorMessage = errorMessage
		e.RetryAt = retryAt
		e.UpdatedAt = now
		switch status {
		case model.OutboxStatusRetry, model.OutboxStatusFailed:
			e.RetryCount++
		case model.OutboxStatusProcessed:
			e.ProcessedAt = &now
		}
		return nil
	}
	return repository.ErrNotFound
}

func (r *outboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var n int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return n, nil
}
