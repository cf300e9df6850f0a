package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Prescription struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	PatientID           uuid.UUID      `db:"patient_id" json:"patientId"`
	DoctorID            uuid.UUID      `db:"doctor_id" json:"doctorId"`
	AppointmentID       uuid.UUID      `db:"appointment_id" json:"appointmentId"`
	Medications         pq.StringArray `db:"medications" json:"medications"`
	Notes               string         `db:"notes" json:"notes"`
	PrescriptionFileURL string         `db:"prescription_file_url" json:"prescriptionFileUrl"`
	IssuedAt            time.Time      `db:"issued_at" json:"issuedAt"`
}

type UploadPrescriptionRequest struct {
	AppointmentID string   `form:"appointmentId" binding:"required,uuid"`
	Medications   []string `form:"medications"`
	Notes         string   `form:"notes" binding:"max=2000"`
}
