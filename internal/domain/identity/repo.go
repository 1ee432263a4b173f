package identity

import (
	"context"

	"github.com/google/uuid"
)

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}

// DoctorRepository returns ErrDoctorNotFound for unknown ids and
// ErrDoctorEmailTaken when an email is already in use.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)
}

// PatientRepository returns ErrPatientNotFound for unknown patients and
// ErrPatientExists on an email or phone collision.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
}

// AppointmentPurger removes a doctor's appointments ahead of the doctor.
type AppointmentPurger interface {
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
}

// TxRunner runs fn atomically where the backing store supports it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InlineTx runs fn directly. It backs in-memory storage, which has no
// transactions.
type InlineTx struct{}

func (InlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
