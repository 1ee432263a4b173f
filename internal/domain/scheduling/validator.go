package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
)

// Verdict is the outcome of validating a requested appointment.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictSlotTaken
	VerdictDoctorNotFound
	VerdictMalformed
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "OK"
	case VerdictSlotTaken:
		return "SLOT_TAKEN"
	case VerdictDoctorNotFound:
		return "DOCTOR_NOT_FOUND"
	case VerdictMalformed:
		return "MALFORMED"
	}
	return "UNKNOWN"
}

// BookingValidator decides whether an appointment may occupy its slot. It is
// the only place slot conflicts are detected before a write; the unique
// constraint in storage covers the race between validation and the write.
type BookingValidator struct {
	doctors DoctorLookup
	engine  *AvailabilityEngine
}

func NewBookingValidator(doctors DoctorLookup, engine *AvailabilityEngine) *BookingValidator {
	return &BookingValidator{doctors: doctors, engine: engine}
}

// Validate checks a new appointment. The error is non-nil only for storage
// failures.
func (v *BookingValidator) Validate(ctx context.Context, a *Appointment) (Verdict, error) {
	return v.ValidateExcluding(ctx, a, uuid.Nil)
}

// ValidateExcluding is Validate with the appointment self treated as absent,
// so an appointment can keep the slot it already holds.
func (v *BookingValidator) ValidateExcluding(ctx context.Context, a *Appointment, self uuid.UUID) (Verdict, error) {
	if a == nil || a.DoctorID == uuid.Nil || a.PatientID == uuid.Nil || a.AppointmentTime.IsZero() {
		return VerdictMalformed, nil
	}
	if !slot.OnBoundary(a.AppointmentTime) {
		return VerdictMalformed, nil
	}

	d, err := v.doctors.GetByID(ctx, a.DoctorID)
	if apperr.Is(err, apperr.KindNotFound) {
		return VerdictDoctorNotFound, nil
	}
	if err != nil {
		return VerdictOK, apperr.Internal("load doctor", err)
	}

	free, err := v.engine.freeSlots(ctx, d, a.AppointmentTime, self)
	if err != nil {
		return VerdictOK, err
	}

	label := slot.Of(a.AppointmentTime, v.engine.Location())
	for _, f := range free {
		if f == label {
			return VerdictOK, nil
		}
	}
	return VerdictSlotTaken, nil
}
