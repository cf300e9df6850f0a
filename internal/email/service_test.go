package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/ezhealth/appointment-api/internal/config"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPServiceSend(t *testing.T) {
	d := &fakeDialer{}
	svc := &smtpService{from: "clinic@example.com", dialer: d}

	err := svc.Send(context.Background(), Message{
		To:      "asha@example.com",
		Subject: "Appointment accepted",
		Body:    "See you soon",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"clinic@example.com"}, d.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Appointment accepted"}, d.sent[0].GetHeader("Subject"))
}

func TestSMTPServiceErrors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	svc := &smtpService{from: "clinic@example.com", dialer: d}

	assert.Error(t, svc.Send(context.Background(), Message{}))
	assert.ErrorContains(t, svc.Send(context.Background(), Message{To: "a@b.c"}), "connection refused")
}

func TestNewSMTPServiceWithoutHostLogsOnly(t *testing.T) {
	svc := NewSMTPService(config.EmailConfig{})
	assert.IsType(t, logOnly{}, svc)
	assert.NoError(t, svc.Send(context.Background(), Message{To: "a@b.c"}))
}
