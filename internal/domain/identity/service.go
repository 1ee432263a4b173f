package identity

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// TokenIssuer signs role-bound session tokens.
type TokenIssuer interface {
	Issue(identifier string, role auth.Role) (string, error)
}

// Stores groups the identity repositories.
type Stores struct {
	Admins   AdminRepository
	Doctors  DoctorRepository
	Patients PatientRepository
}

type Service struct {
	admins       AdminRepository
	doctors      DoctorRepository
	patients     PatientRepository
	appointments AppointmentPurger
	tx           TxRunner
	passwords    auth.PasswordVerifier
	tokens       TokenIssuer
}

func NewService(stores Stores, appointments AppointmentPurger, tx TxRunner, passwords auth.PasswordVerifier, tokens TokenIssuer) *Service {
	return &Service{
		admins:       stores.Admins,
		doctors:      stores.Doctors,
		patients:     stores.Patients,
		appointments: appointments,
		tx:           tx,
		passwords:    passwords,
		tokens:       tokens,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	Role      auth.Role `json:"role"`
	AccountID uuid.UUID `json:"account_id"`
}

// -- Authentication --

// Login checks credentials against the store for role: admins by username,
// doctors and patients by email. Any credential failure is Unauthorized.
func (s *Service) Login(ctx context.Context, role auth.Role, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.Malformed("identifier and password are required")
	}

	var (
		id   uuid.UUID
		hash string
		err  error
	)
	switch role {
	case auth.RoleAdmin:
		var a *Admin
		if a, err = s.admins.GetByUsername(ctx, identifier); err == nil {
			id, hash = a.ID, a.PasswordHash
		}
	case auth.RoleDoctor:
		identifier = normalizeEmail(identifier)
		var d *Doctor
		if d, err = s.doctors.GetByEmail(ctx, identifier); err == nil {
			id, hash = d.ID, d.PasswordHash
		}
	case auth.RolePatient:
		identifier = normalizeEmail(identifier)
		var p *Patient
		if p, err = s.patients.GetByEmail(ctx, identifier); err == nil {
			id, hash = p.ID, p.PasswordHash
		}
	default:
		return nil, apperr.Malformed("unknown role")
	}
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized()
	}
	if err != nil {
		return nil, apperr.Internal("load account", err)
	}

	if err := s.passwords.Verify(hash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperr.Unauthorized()
		}
		return nil, apperr.Internal("verify password", err)
	}

	token, err := s.tokens.Issue(identifier, role)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &Session{Token: token, Role: role, AccountID: id}, nil
}

// Resolve implements auth.IdentityStore.
func (s *Service) Resolve(ctx context.Context, role auth.Role, identifier string) (uuid.UUID, error) {
	var (
		id  uuid.UUID
		err error
	)
	switch role {
	case auth.RoleAdmin:
		var a *Admin
		if a, err = s.admins.GetByUsername(ctx, identifier); err == nil {
			id = a.ID
		}
	case auth.RoleDoctor:
		var d *Doctor
		if d, err = s.doctors.GetByEmail(ctx, identifier); err == nil {
			id = d.ID
		}
	case auth.RolePatient:
		var p *Patient
		if p, err = s.patients.GetByEmail(ctx, identifier); err == nil {
			id = p.ID
		}
	default:
		return uuid.Nil, auth.ErrIdentityNotFound
	}
	if apperr.Is(err, apperr.KindNotFound) {
		return uuid.Nil, auth.ErrIdentityNotFound
	}
	return id, err
}

// -- Admin --

func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Malformed("username is required")
	}
	if password == "" {
		return nil, apperr.Malformed("password is required")
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	a := &Admin{Username: username, PasswordHash: hash}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, wrapStoreErr("create admin", err)
	}
	return a, nil
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	if d.Password == "" {
		return apperr.Malformed("password is required")
	}
	if err := s.hashDoctorPassword(d); err != nil {
		return err
	}
	return wrapStoreErr("create doctor", s.doctors.Create(ctx, d))
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr("get doctor", err)
	}
	return d, nil
}

// UpdateDoctor replaces the doctor's profile and declared slots. The stored
// password is kept unless a new one is supplied. Existing appointments are
// left in place even if their slot is no longer declared.
func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	existing, err := s.doctors.GetByID(ctx, d.ID)
	if err != nil {
		return wrapStoreErr("get doctor", err)
	}
	if err := validateDoctor(d); err != nil {
		return err
	}
	if d.Password == "" {
		d.PasswordHash = existing.PasswordHash
	} else if err := s.hashDoctorPassword(d); err != nil {
		return err
	}
	d.CreatedAt = existing.CreatedAt
	return wrapStoreErr("update doctor", s.doctors.Update(ctx, d))
}

// DeleteDoctor removes the doctor's appointments, then the doctor, in one
// transaction.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.doctors.GetByID(ctx, id); err != nil {
			return wrapStoreErr("get doctor", err)
		}
		if _, err := s.appointments.DeleteByDoctor(ctx, id); err != nil {
			return apperr.Internal("delete doctor appointments", err)
		}
		return wrapStoreErr("delete doctor", s.doctors.Delete(ctx, id))
	})
}

func (s *Service) SearchDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Specialty = strings.TrimSpace(f.Specialty)
	doctors, total, err := s.doctors.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("search doctors", err)
	}
	return doctors, total, nil
}

func (s *Service) hashDoctorPassword(d *Doctor) error {
	hash, err := s.passwords.Hash(d.Password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	d.PasswordHash = hash
	d.Password = ""
	return nil
}

func validateDoctor(d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Specialty = strings.TrimSpace(d.Specialty)
	d.Email = normalizeEmail(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)

	if d.Name == "" {
		return apperr.Malformed("name is required")
	}
	if d.Specialty == "" {
		return apperr.Malformed("specialty is required")
	}
	if err := validateContact(d.Email, d.Phone); err != nil {
		return err
	}
	if err := slot.Validate(d.AvailableTimes); err != nil {
		return apperr.Malformed(err.Error())
	}
	slot.Sort(d.AvailableTimes)
	return nil
}

// -- Patient --

// SignupPatient registers a patient. Email and phone must both be unused.
func (s *Service) SignupPatient(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)

	if p.Name == "" {
		return apperr.Malformed("name is required")
	}
	if err := validateContact(p.Email, p.Phone); err != nil {
		return err
	}
	if len(p.Address) > 255 {
		return apperr.Malformed("address must be at most 255 characters")
	}
	if p.Password == "" {
		return apperr.Malformed("password is required")
	}

	exists, err := s.patients.ExistsByEmailOrPhone(ctx, p.Email, p.Phone)
	if err != nil {
		return apperr.Internal("check patient uniqueness", err)
	}
	if exists {
		return ErrPatientExists
	}

	hash, err := s.passwords.Hash(p.Password)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	p.PasswordHash = hash
	p.Password = ""

	return wrapStoreErr("create patient", s.patients.Create(ctx, p))
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr("get patient", err)
	}
	return p, nil
}

func validateContact(email, phone string) error {
	if email == "" {
		return apperr.Malformed("email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperr.Malformed("email is not a valid address")
	}
	if !phonePattern.MatchString(phone) {
		return apperr.Malformed("phone must be 10 digits")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// wrapStoreErr passes classified errors through and marks anything else as
// an internal storage failure.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}
