package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
)

var (
	ErrAdminNotFound   = apperr.NotFound("admin not found")
	ErrDoctorNotFound  = apperr.NotFound("doctor not found")
	ErrPatientNotFound = apperr.NotFound("patient not found")

	ErrAdminExists      = apperr.Conflict("username already registered")
	ErrDoctorEmailTaken = apperr.Conflict("doctor email already registered")
	ErrPatientExists    = apperr.Conflict("patient with this email or phone already exists")
)

type Admin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Doctor declares the daily slot labels patients may book. Password is
// write-only: it is accepted on create/update and cleared once hashed.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Specialty      string    `db:"specialty" json:"specialty"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Password       string    `db:"-" json:"password,omitempty"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	AvailableTimes []string  `db:"available_times" json:"available_times"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Address      string    `db:"address" json:"address,omitempty"`
	Password     string    `db:"-" json:"password,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DoctorFilter narrows a doctor search. Zero values match everything.
type DoctorFilter struct {
	Name      string
	Specialty string
	Period    slot.Period
}
