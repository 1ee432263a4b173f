package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/identity"
)

// AppointmentRepository stores appointments. Create and Update must return
// ErrSlotTaken when another appointment already holds the same doctor and
// timestamp; that check is atomic with the write.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status int) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)

	// ListByDoctorAndRange returns appointments in [start, end) ordered by
	// time, with PatientName set.
	ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error)
	// ListByPatient returns the patient's appointments ordered by time, with
	// DoctorName set.
	ListByPatient(ctx context.Context, patientID uuid.UUID, f PatientFilter) ([]*Appointment, error)
}

// DoctorLookup is the slice of the doctor store scheduling reads from.
type DoctorLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

// PatientLookup resolves patient names for in-memory joins.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}
