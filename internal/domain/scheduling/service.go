package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/scheduler/internal/domain/identity"
	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

// Service runs the appointment lifecycle: patients book, move and cancel
// their own appointments; doctors read their day and close appointments.
type Service struct {
	appointments AppointmentRepository
	engine       *AvailabilityEngine
	validator    *BookingValidator
	now          func() time.Time
	logger       zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(appointments AppointmentRepository, doctors DoctorLookup, loc *time.Location, opts ...Option) *Service {
	engine := NewAvailabilityEngine(doctors, appointments, loc)
	s := &Service{
		appointments: appointments,
		engine:       engine,
		validator:    NewBookingValidator(doctors, engine),
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the clinic time zone.
func (s *Service) Location() *time.Location {
	return s.engine.Location()
}

// Availability returns the free slot labels of a doctor on a date.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	return s.engine.Availability(ctx, doctorID, date)
}

// Book creates an appointment for the requesting patient.
func (s *Service) Book(ctx context.Context, p *auth.Principal, a *Appointment) error {
	if p == nil || p.Role != auth.RolePatient {
		return apperr.Unauthorized()
	}
	if a.PatientID != uuid.Nil && a.PatientID != p.SubjectID {
		return apperr.Forbidden("appointments can only be booked for yourself")
	}
	a.PatientID = p.SubjectID
	if err := s.checkRequest(ctx, a, uuid.Nil); err != nil {
		return err
	}

	a.Status = StatusScheduled
	if err := s.appointments.Create(ctx, a); err != nil {
		return s.persistErr("create appointment", a, err)
	}
	return nil
}

// Update moves an appointment the requesting patient owns. Keeping the slot
// it already holds is not a conflict.
func (s *Service) Update(ctx context.Context, p *auth.Principal, a *Appointment) error {
	if p == nil || p.Role != auth.RolePatient {
		return apperr.Unauthorized()
	}
	if a.ID == uuid.Nil {
		return apperr.Malformed("appointment id is required")
	}

	existing, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return classify("get appointment", err)
	}
	if existing.PatientID != p.SubjectID {
		return apperr.Forbidden("appointment belongs to another patient")
	}
	if a.PatientID == uuid.Nil {
		a.PatientID = existing.PatientID
	} else if a.PatientID != existing.PatientID {
		return apperr.Forbidden("appointments cannot be reassigned")
	}

	if err := s.checkRequest(ctx, a, a.ID); err != nil {
		return err
	}

	a.Status = existing.Status
	a.CreatedAt = existing.CreatedAt
	if err := s.appointments.Update(ctx, a); err != nil {
		return s.persistErr("update appointment", a, err)
	}
	return nil
}

// Cancel deletes an appointment. Only the patient who booked it may cancel;
// cancelling an id that no longer exists is NotFound.
func (s *Service) Cancel(ctx context.Context, p *auth.Principal, id uuid.UUID) error {
	if p == nil {
		return apperr.Unauthorized()
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return classify("get appointment", err)
	}
	if p.Role != auth.RolePatient || a.PatientID != p.SubjectID {
		return apperr.Forbidden("only the booking patient may cancel")
	}
	return classify("delete appointment", s.appointments.Delete(ctx, id))
}

// DayView lists the requesting doctor's appointments on date, ordered by
// time, optionally narrowed to patients whose name contains patientName.
func (s *Service) DayView(ctx context.Context, p *auth.Principal, date time.Time, patientName string) ([]*Appointment, error) {
	if p == nil || p.Role != auth.RoleDoctor {
		return nil, apperr.Unauthorized()
	}
	start, end := slot.DayRange(date, s.Location())
	appts, err := s.appointments.ListByDoctorAndRange(ctx, p.SubjectID, start, end)
	if err != nil {
		return nil, apperr.Internal("list day appointments", err)
	}

	needle := strings.ToLower(strings.TrimSpace(patientName))
	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		if needle == "" || strings.Contains(strings.ToLower(a.PatientName), needle) {
			out = append(out, a)
		}
	}
	sortByTime(out)
	return out, nil
}

// PatientAppointments lists the requesting patient's own appointments.
func (s *Service) PatientAppointments(ctx context.Context, p *auth.Principal, f PatientFilter) ([]*Appointment, error) {
	if p == nil || p.Role != auth.RolePatient {
		return nil, apperr.Unauthorized()
	}
	f.DoctorName = strings.TrimSpace(f.DoctorName)
	appts, err := s.appointments.ListByPatient(ctx, p.SubjectID, f)
	if err != nil {
		return nil, apperr.Internal("list patient appointments", err)
	}
	sortByTime(appts)
	return appts, nil
}

// SetStatus lets the appointment's doctor mark it scheduled or completed.
func (s *Service) SetStatus(ctx context.Context, p *auth.Principal, id uuid.UUID, status int) error {
	if p == nil || p.Role != auth.RoleDoctor {
		return apperr.Unauthorized()
	}
	if status != StatusScheduled && status != StatusCompleted {
		return apperr.Malformed("status must be 0 or 1")
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return classify("get appointment", err)
	}
	if a.DoctorID != p.SubjectID {
		return apperr.Forbidden("appointment belongs to another doctor")
	}
	return classify("update appointment status", s.appointments.UpdateStatus(ctx, id, status))
}

// checkRequest runs the booking validator and maps its verdict onto the
// error taxonomy.
func (s *Service) checkRequest(ctx context.Context, a *Appointment, self uuid.UUID) error {
	verdict, err := s.validator.ValidateExcluding(ctx, a, self)
	if err != nil {
		return err
	}
	switch verdict {
	case VerdictOK:
	case VerdictMalformed:
		return apperr.Malformed("doctor_id, patient_id and a whole-minute appointment_time are required")
	case VerdictDoctorNotFound:
		return identity.ErrDoctorNotFound
	default:
		return ErrSlotTaken
	}

	if !a.AppointmentTime.After(s.now()) {
		return apperr.Malformed("appointment_time must be in the future")
	}
	return nil
}

// persistErr reports a storage-level slot collision the same way the
// validator would have.
func (s *Service) persistErr(op string, a *Appointment, err error) error {
	if errors.Is(err, ErrSlotTaken) {
		s.logger.Warn().
			Str("doctor_id", a.DoctorID.String()).
			Time("appointment_time", a.AppointmentTime).
			Msg("slot claimed by a concurrent booking")
		return ErrSlotTaken
	}
	return classify(op, err)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}

func sortByTime(appts []*Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].AppointmentTime.Before(appts[j].AppointmentTime)
	})
}
