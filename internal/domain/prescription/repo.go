package prescription

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/scheduling"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Prescription, error)
}

// AppointmentLookup resolves the appointment a prescription is written for.
type AppointmentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}
