package prescription

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/scheduling"
)

type memoryRepo struct {
	mu           sync.RWMutex
	byApt        map[uuid.UUID][]*Prescription
	appointments AppointmentLookup
}

// NewMemoryRepo returns a process-local store. When appointments is set it
// follows the appointment foreign key: writes for a missing appointment fail,
// and prescriptions of a cancelled appointment are dropped on the next read.
func NewMemoryRepo(appointments AppointmentLookup) Repository {
	return &memoryRepo{
		byApt:        make(map[uuid.UUID][]*Prescription),
		appointments: appointments,
	}
}

// appointmentExists reports false only when the lookup says the appointment
// is gone.
func (m *memoryRepo) appointmentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.appointments == nil {
		return true, nil
	}
	_, err := m.appointments.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		return false, nil
	}
	return false, err
}

func (m *memoryRepo) Create(ctx context.Context, p *Prescription) error {
	ok, err := m.appointmentExists(ctx, p.AppointmentID)
	if err != nil {
		return err
	}
	if !ok {
		return scheduling.ErrAppointmentNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	m.byApt[p.AppointmentID] = append(m.byApt[p.AppointmentID], &cp)
	return nil
}

func (m *memoryRepo) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Prescription, error) {
	ok, err := m.appointmentExists(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.mu.Lock()
		delete(m.byApt, appointmentID)
		m.mu.Unlock()
		return []*Prescription{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.byApt[appointmentID]
	out := make([]*Prescription, 0, len(stored))
	for _, p := range stored {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
