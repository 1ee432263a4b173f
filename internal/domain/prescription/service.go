package prescription

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

const (
	minPatientName = 3
	maxPatientName = 20
	maxMedication  = 100
	maxDosage      = 100
	maxNotes       = 200
)

// Service stores prescriptions on behalf of the doctor who holds the
// appointment.
type Service struct {
	repo         Repository
	appointments AppointmentLookup
}

func NewService(repo Repository, appointments AppointmentLookup) *Service {
	return &Service{repo: repo, appointments: appointments}
}

func (s *Service) Save(ctx context.Context, p *auth.Principal, rx *Prescription) error {
	if err := s.authorize(ctx, p, rx.AppointmentID); err != nil {
		return err
	}
	if err := validate(rx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, rx); err != nil {
		return classify("create prescription", err)
	}
	return nil
}

// GetByAppointment returns the prescriptions written for an appointment,
// oldest first.
func (s *Service) GetByAppointment(ctx context.Context, p *auth.Principal, appointmentID uuid.UUID) ([]*Prescription, error) {
	if err := s.authorize(ctx, p, appointmentID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperr.Internal("list prescriptions", err)
	}
	if len(out) == 0 {
		return nil, ErrPrescriptionNotFound
	}
	return out, nil
}

// authorize admits only the doctor the appointment is booked with.
func (s *Service) authorize(ctx context.Context, p *auth.Principal, appointmentID uuid.UUID) error {
	if p == nil || p.Role != auth.RoleDoctor {
		return apperr.Unauthorized()
	}
	if appointmentID == uuid.Nil {
		return apperr.Malformed("appointment_id is required")
	}
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return classify("get appointment", err)
	}
	if a.DoctorID != p.SubjectID {
		return apperr.Forbidden("appointment belongs to another doctor")
	}
	return nil
}

func validate(rx *Prescription) error {
	rx.PatientName = strings.TrimSpace(rx.PatientName)
	rx.Medication = strings.TrimSpace(rx.Medication)
	rx.Dosage = strings.TrimSpace(rx.Dosage)
	rx.DoctorNotes = strings.TrimSpace(rx.DoctorNotes)

	if n := utf8.RuneCountInString(rx.PatientName); n < minPatientName || n > maxPatientName {
		return apperr.Malformed("patient_name must be 3 to 20 characters")
	}
	if rx.Medication == "" || utf8.RuneCountInString(rx.Medication) > maxMedication {
		return apperr.Malformed("medication is required and at most 100 characters")
	}
	if utf8.RuneCountInString(rx.Dosage) > maxDosage {
		return apperr.Malformed("dosage must be at most 100 characters")
	}
	if utf8.RuneCountInString(rx.DoctorNotes) > maxNotes {
		return apperr.Malformed("doctor_notes must be at most 200 characters")
	}
	return nil
}

func classify(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}
