package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory repositories back STORAGE=memory and tests. They enforce the same
// uniqueness rules as the SQL schema and hand out copies so callers cannot
// mutate stored state.

type memoryAdminRepo struct {
	mu     sync.RWMutex
	admins map[string]*Admin // username -> admin
}

func NewMemoryAdminRepo() AdminRepository {
	return &memoryAdminRepo{admins: make(map[string]*Admin)}
}

func (m *memoryAdminRepo) Create(_ context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.Username]; ok {
		return ErrAdminExists
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	cp := *a
	m.admins[a.Username] = &cp
	return nil
}

func (m *memoryAdminRepo) GetByUsername(_ context.Context, username string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[username]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

type memoryDoctorRepo struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*Doctor
}

func NewMemoryDoctorRepo() DoctorRepository {
	return &memoryDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func copyDoctor(d *Doctor) *Doctor {
	cp := *d
	cp.AvailableTimes = append([]string{}, d.AvailableTimes...)
	cp.Password = ""
	return &cp
}

func (m *memoryDoctorRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, d := range m.doctors {
		if id != except && d.Email == email {
			return true
		}
	}
	return false
}

func (m *memoryDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(d.Email, uuid.Nil) {
		return ErrDoctorEmailTaken
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	m.doctors[d.ID] = copyDoctor(d)
	return nil
}

func (m *memoryDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return copyDoctor(d), nil
}

func (m *memoryDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.Email == email {
			return copyDoctor(d), nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (m *memoryDoctorRepo) Update(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.doctors[d.ID]
	if !ok {
		return ErrDoctorNotFound
	}
	if m.emailTaken(d.Email, d.ID) {
		return ErrDoctorEmailTaken
	}
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	m.doctors[d.ID] = copyDoctor(d)
	return nil
}

func (m *memoryDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[id]; !ok {
		return ErrDoctorNotFound
	}
	delete(m.doctors, id)
	return nil
}

func (m *memoryDoctorRepo) Search(_ context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	m.mu.RLock()
	var matched []*Doctor
	name := strings.ToLower(f.Name)
	for _, d := range m.doctors {
		if name != "" && !strings.Contains(strings.ToLower(d.Name), name) {
			continue
		}
		if f.Specialty != "" && !strings.EqualFold(d.Specialty, f.Specialty) {
			continue
		}
		if !f.Period.Matches(d.AvailableTimes) {
			continue
		}
		matched = append(matched, copyDoctor(d))
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if offset >= total {
		return []*Doctor{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

type memoryPatientRepo struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
}

func NewMemoryPatientRepo() PatientRepository {
	return &memoryPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *memoryPatientRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.patients {
		if existing.Email == p.Email || existing.Phone == p.Phone {
			return ErrPatientExists
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	cp := *p
	cp.Password = ""
	m.patients[p.ID] = &cp
	return nil
}

func (m *memoryPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPatientRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *memoryPatientRepo) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.Email == email || p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}
