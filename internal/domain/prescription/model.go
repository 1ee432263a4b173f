package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/platform/apperr"
)

var ErrPrescriptionNotFound = apperr.NotFound("no prescription exists for this appointment")

// Prescription is free-text medication guidance attached to an appointment.
type Prescription struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	PatientName   string    `db:"patient_name" json:"patient_name"`
	Medication    string    `db:"medication" json:"medication"`
	Dosage        string    `db:"dosage" json:"dosage"`
	DoctorNotes   string    `db:"doctor_notes" json:"doctor_notes"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
