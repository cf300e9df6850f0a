package prescription

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/media"
	"github.com/ezhealth/appointment-api/internal/model"
	"github.com/ezhealth/appointment-api/internal/repository/memory"
	apperrors "github.com/ezhealth/appointment-api/pkg/errors"
)

type fixture struct {
	svc     *Service
	apt     *model.Appointment
	patient model.Principal
	doctor  model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	disk, err := media.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	f := &fixture{
		patient: model.Principal{ID: uuid.New(), Role: model.RolePatient},
		doctor:  model.Principal{ID: uuid.New(), Role: model.RoleDoctor},
	}
	f.apt = &model.Appointment{
		PatientID:       f.patient.ID,
		DoctorID:        f.doctor.ID,
		AppointmentDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AppointmentTime: "10:00 AM",
		Status:          model.AppointmentStatusAccepted,
		PaymentStatus:   model.PaymentStatusPaid,
	}
	require.NoError(t, store.Appointments().Create(context.Background(), f.apt))

	f.svc = NewService(store.Prescriptions(), store.Appointments(), disk, zerolog.Nop())
	return f
}

func (f *fixture) request() model.UploadPrescriptionRequest {
	return model.UploadPrescriptionRequest{
		AppointmentID: f.apt.ID.String(),
		Medications:   []string{" Paracetamol 500mg ", "", "ORS"},
		Notes:         "after meals",
	}
}

func pdf() *bytes.Reader {
	return bytes.NewReader([]byte("%PDF-1.4\n%fake\n"))
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Upload(context.Background(), f.doctor, f.request(), "application/pdf", pdf())
	require.NoError(t, err)

	assert.Equal(t, f.patient.ID, p.PatientID)
	assert.Equal(t, f.apt.ID, p.AppointmentID)
	assert.Equal(t, []string{"Paracetamol 500mg", "ORS"}, []string(p.Medications))
	assert.True(t, strings.HasPrefix(p.PrescriptionFileURL, "/media/prescriptions/"))
	assert.True(t, strings.HasSuffix(p.PrescriptionFileURL, ".pdf"))

	mine, err := f.svc.ListForPatient(context.Background(), f.patient)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)

	forApt, err := f.svc.ListForAppointment(context.Background(), f.doctor, f.apt.ID)
	require.NoError(t, err)
	assert.Len(t, forApt, 1)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, f.patient, f.request(), "application/pdf", pdf())
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	other := model.Principal{ID: uuid.New(), Role: model.RoleDoctor}
	_, err = f.svc.Upload(ctx, other, f.request(), "application/pdf", pdf())
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = f.svc.Upload(ctx, f.doctor, f.request(), "image/png", pdf())
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = f.svc.Upload(ctx, f.doctor, f.request(), "application/pdf", strings.NewReader("not a pdf"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	big := bytes.NewReader(append([]byte("%PDF-"), make([]byte, media.MaxPrescriptionSize)...))
	_, err = f.svc.Upload(ctx, f.doctor, f.request(), "application/pdf", big)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	req := f.request()
	req.AppointmentID = uuid.NewString()
	_, err = f.svc.Upload(ctx, f.doctor, req, "application/pdf", pdf())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestListForAppointmentAccess(t *testing.T) {
	f := newFixture(t)

	list, err := f.svc.ListForAppointment(context.Background(), f.patient, f.apt.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	stranger := model.Principal{ID: uuid.New(), Role: model.RolePatient}
	_, err = f.svc.ListForAppointment(context.Background(), stranger, f.apt.ID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = f.svc.ListForPatient(context.Background(), f.doctor)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}
