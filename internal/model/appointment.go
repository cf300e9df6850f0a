package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusAccepted  AppointmentStatus = "Accepted"
	AppointmentStatusRejected  AppointmentStatus = "Rejected"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusFailed  PaymentStatus = "Failed"
)

// transitions lists the forward moves allowed out of each non-terminal status.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusAccepted,
		AppointmentStatusRejected,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
	AppointmentStatusAccepted: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
}

// IsTerminal reports whether no transition may leave s.
func (s AppointmentStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusAccepted, AppointmentStatusRejected,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an appointment in from may move to to.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DoctorSettable reports whether a doctor may request s. Cancelled is only
// reachable through the patient's cancel action.
func DoctorSettable(s AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusAccepted,
		AppointmentStatusRejected, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Cancellable lists the statuses a patient may cancel from.
var Cancellable = []AppointmentStatus{AppointmentStatusPending, AppointmentStatusAccepted}

type Appointment struct {
	Base
	PatientID        uuid.UUID         `db:"patient_id" json:"patientId"`
	DoctorID         uuid.UUID         `db:"doctor_id" json:"doctorId"`
	AppointmentDate  time.Time         `db:"appointment_date" json:"appointmentDate"`
	AppointmentTime  string            `db:"appointment_time" json:"appointmentTime"`
	Department       string            `db:"department" json:"department"`
	Status           AppointmentStatus `db:"status" json:"status"`
	PaymentStatus    PaymentStatus     `db:"payment_status" json:"paymentStatus"`
	Amount           decimal.Decimal   `db:"amount" json:"amount"`
	MeetingLink      string            `db:"meeting_link" json:"meetingLink"`
	HasVisited       bool              `db:"has_visited" json:"hasVisited"`
	OrderRef         *string           `db:"order_ref" json:"orderRef"`
	PaymentRef       *string           `db:"payment_ref" json:"paymentRef"`
	PaymentSignature *string           `db:"payment_signature" json:"paymentSignature"`
}

// OwnedByPatient reports whether id is the booking patient.
func (a *Appointment) OwnedByPatient(id uuid.UUID) bool {
	return a.PatientID == id
}

// OwnedByDoctor reports whether id is the assigned doctor.
func (a *Appointment) OwnedByDoctor(id uuid.UUID) bool {
	return a.DoctorID == id
}

// AppointmentView is an appointment enriched with participant names for admins.
type AppointmentView struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	PatientName     string            `db:"patient_name" json:"patientName"`
	DoctorName      string            `db:"doctor_name" json:"doctorName"`
	Department      string            `db:"department" json:"department"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointmentDate"`
	AppointmentTime string            `db:"appointment_time" json:"appointmentTime"`
	Status          AppointmentStatus `db:"status" json:"status"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"paymentStatus"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
}

type BookAppointmentRequest struct {
	DoctorID        string           `json:"doctorId" binding:"required,uuid"`
	AppointmentDate string           `json:"appointmentDate" binding:"required"`
	AppointmentTime string           `json:"appointmentTime" binding:"required,slot"`
	Department      string           `json:"department" binding:"max=100"`
	Amount          *decimal.Decimal `json:"amount"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

type AvailableSlotsQuery struct {
	DoctorID string `form:"doctorId" binding:"required,uuid"`
	Date     string `form:"date" binding:"required"`
}
