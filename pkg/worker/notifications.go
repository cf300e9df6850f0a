package worker

import (
	"fmt"
	"strings"

	"github.com/ezhealth/appointment-api/internal/email"
	"github.com/ezhealth/appointment-api/internal/model"
)

// notifiesPatient reports whether eventType results in a patient email.
func notifiesPatient(eventType string) bool {
	switch eventType {
	case model.EventAppointmentAccepted,
		model.EventAppointmentRejected,
		model.EventAppointmentCancelled,
		model.EventPaymentPaid:
		return true
	}
	return false
}

func patientEmail(eventType string, p model.AppointmentEventPayload, patient *model.User, doctorName string) email.Message {
	when := fmt.Sprintf("%s at %s", p.AppointmentDate, p.AppointmentTime)

	var subject string
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", patient.FirstName)

	switch eventType {
	case model.EventAppointmentAccepted:
		subject = "Your appointment has been accepted"
		fmt.Fprintf(&body, "%s accepted your appointment on %s.\n", doctorName, when)
		if p.MeetingLink != "" {
			fmt.Fprintf(&body, "Join the consultation here: %s\n", p.MeetingLink)
		}
	case model.EventAppointmentRejected:
		subject = "Your appointment request was declined"
		fmt.Fprintf(&body, "%s could not take your appointment on %s. Please book another slot.\n", doctorName, when)
	case model.EventAppointmentCancelled:
		subject = "Your appointment has been cancelled"
		fmt.Fprintf(&body, "Your appointment with %s on %s has been cancelled.\n", doctorName, when)
	case model.EventPaymentPaid:
		subject = "Payment received"
		fmt.Fprintf(&body, "We received your payment for the appointment with %s on %s.\n", doctorName, when)
	}

	body.WriteString("\nEZHealth")
	return email.Message{
		To:      patient.Email,
		Subject: subject,
		Body:    body.String(),
	}
}
