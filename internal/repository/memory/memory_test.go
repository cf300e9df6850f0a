package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository"
)

func TestCreateAllowsOneActiveBookingPerSlot(t *testing.T) {
	repo := NewStore().Appointments()
	doctorID := uuid.New()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		taken   atomic.Int32
		attempt = 20
	)
	for i := 0; i < attempt; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), &model.Appointment{
				PatientID:       uuid.New(),
				DoctorID:        doctorID,
				AppointmentDate: date,
				AppointmentTime: "10:00 AM",
				Status:          model.AppointmentStatusPending,
			})
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, repository.ErrSlotTaken):
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(attempt-1), taken.Load())
}

func TestCancelledBookingReleasesSlot(t *testing.T) {
	repo := NewStore().Appointments()
	ctx := context.Background()
	apt := &model.Appointment{
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		AppointmentDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AppointmentTime: "10:00 AM",
		Status:          model.AppointmentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, apt))

	_, err := repo.UpdateStatus(ctx, apt.ID, model.Cancellable, model.AppointmentStatusCancelled, "")
	require.NoError(t, err)

	slots, err := repo.BookedSlots(ctx, apt.DoctorID, apt.AppointmentDate)
	require.NoError(t, err)
	assert.Empty(t, slots)

	again := *apt
	again.ID = uuid.Nil
	again.Status = model.AppointmentStatusPending
	assert.NoError(t, repo.Create(ctx, &again))
}

func TestUpdateStatusGuardAndStickyLink(t *testing.T) {
	repo := NewStore().Appointments()
	ctx := context.Background()
	apt := &model.Appointment{
		DoctorID:        uuid.New(),
		AppointmentDate: time.Now(),
		AppointmentTime: "09:00 AM",
		Status:          model.AppointmentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, apt))

	got, err := repo.UpdateStatus(ctx, apt.ID,
		[]model.AppointmentStatus{model.AppointmentStatusPending}, model.AppointmentStatusAccepted, "link-1")
	require.NoError(t, err)
	assert.Equal(t, "link-1", got.MeetingLink)

	_, err = repo.UpdateStatus(ctx, apt.ID,
		[]model.AppointmentStatus{model.AppointmentStatusPending}, model.AppointmentStatusRejected, "")
	assert.ErrorIs(t, err, repository.ErrStaleWrite)

	got, err = repo.UpdateStatus(ctx, apt.ID,
		[]model.AppointmentStatus{model.AppointmentStatusAccepted}, model.AppointmentStatusAccepted, "link-2")
	require.NoError(t, err)
	assert.Equal(t, "link-1", got.MeetingLink)
}

func TestOutboxClaimAndRetry(t *testing.T) {
	store := NewStore()
	repo := store.Outbox()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.OutboxEvent{EventType: model.EventAppointmentBooked, Payload: []byte(`{}`)}))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	later := time.Now().Add(time.Hour)
	require.NoError(t, repo.UpdateStatus(ctx, claimed[0].ID, model.OutboxStatusRetry, nil, &later))

	notDue, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, notDue)
	assert.Equal(t, 1, store.OutboxEvents()[0].RetryCount)
}
