package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/identity"
)

type memoryAppointmentRepo struct {
	mu       sync.RWMutex
	appts    map[uuid.UUID]*Appointment
	retired  map[uuid.UUID]struct{}
	doctors  DoctorLookup
	patients PatientLookup
}

// NewMemoryAppointmentRepo returns a process-local store. Names for the list
// reads are resolved through the lookups; either may be nil. When doctors is
// set, writes re-check the doctor under the store lock, and a doctor whose
// appointments were purged by DeleteByDoctor accepts no new ones.
func NewMemoryAppointmentRepo(doctors DoctorLookup, patients PatientLookup) AppointmentRepository {
	return &memoryAppointmentRepo{
		appts:    make(map[uuid.UUID]*Appointment),
		retired:  make(map[uuid.UUID]struct{}),
		doctors:  doctors,
		patients: patients,
	}
}

// slotHeld reports whether an appointment other than except holds the
// doctor's timestamp. Callers hold mu.
func (m *memoryAppointmentRepo) slotHeld(doctorID uuid.UUID, at time.Time, except uuid.UUID) bool {
	for id, a := range m.appts {
		if id != except && a.DoctorID == doctorID && a.AppointmentTime.Equal(at) {
			return true
		}
	}
	return false
}

// checkDoctor mirrors the doctors foreign key. Callers hold mu.
func (m *memoryAppointmentRepo) checkDoctor(ctx context.Context, doctorID uuid.UUID) error {
	if _, gone := m.retired[doctorID]; gone {
		return identity.ErrDoctorNotFound
	}
	if m.doctors == nil {
		return nil
	}
	if _, err := m.doctors.GetByID(ctx, doctorID); err != nil {
		if errors.Is(err, identity.ErrDoctorNotFound) {
			return identity.ErrDoctorNotFound
		}
		return err
	}
	return nil
}

func (m *memoryAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDoctor(ctx, a.DoctorID); err != nil {
		return err
	}
	if m.slotHeld(a.DoctorID, a.AppointmentTime, uuid.Nil) {
		return ErrSlotTaken
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memoryAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAppointmentRepo) Update(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	if err := m.checkDoctor(ctx, a.DoctorID); err != nil {
		return err
	}
	if m.slotHeld(a.DoctorID, a.AppointmentTime, a.ID) {
		return ErrSlotTaken
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	cp.DoctorName, cp.PatientName = "", ""
	m.appts[a.ID] = &cp
	return nil
}

func (m *memoryAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memoryAppointmentRepo) DeleteByDoctor(_ context.Context, doctorID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retired[doctorID] = struct{}{}
	n := 0
	for id, a := range m.appts {
		if a.DoctorID == doctorID {
			delete(m.appts, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryAppointmentRepo) ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	m.mu.RLock()
	var out []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && !a.AppointmentTime.Before(start) && a.AppointmentTime.Before(end) {
			cp := *a
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	for _, a := range out {
		a.PatientName = m.patientName(ctx, a.PatientID)
	}
	sortByTime(out)
	return out, nil
}

func (m *memoryAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, f PatientFilter) ([]*Appointment, error) {
	status, byStatus := f.Condition.Status()

	m.mu.RLock()
	var mine []*Appointment
	for _, a := range m.appts {
		if a.PatientID != patientID || (byStatus && a.Status != status) {
			continue
		}
		cp := *a
		mine = append(mine, &cp)
	}
	m.mu.RUnlock()

	needle := strings.ToLower(f.DoctorName)
	out := mine[:0]
	for _, a := range mine {
		a.DoctorName = m.doctorName(ctx, a.DoctorID)
		if needle == "" || strings.Contains(strings.ToLower(a.DoctorName), needle) {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out, nil
}

func (m *memoryAppointmentRepo) doctorName(ctx context.Context, id uuid.UUID) string {
	if m.doctors == nil {
		return ""
	}
	d, err := m.doctors.GetByID(ctx, id)
	if err != nil {
		return ""
	}
	return d.Name
}

func (m *memoryAppointmentRepo) patientName(ctx context.Context, id uuid.UUID) string {
	if m.patients == nil {
		return ""
	}
	p, err := m.patients.GetByID(ctx, id)
	if err != nil {
		return ""
	}
	return p.Name
}
