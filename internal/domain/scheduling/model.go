package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/platform/apperr"
)

// Appointment status is a past/future discriminator, not a state machine.
// Cancelled appointments are deleted.
const (
	StatusScheduled = 0
	StatusCompleted = 1
)

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment not found")
	ErrSlotTaken           = apperr.Conflict("slot is not available")
)

type Appointment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DoctorID        uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	AppointmentTime time.Time `db:"appointment_time" json:"appointment_time"`
	Status          int       `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// Populated on reads that join the participant tables.
	DoctorName  string `db:"-" json:"doctor_name,omitempty"`
	PatientName string `db:"-" json:"patient_name,omitempty"`
}

// Condition filters a patient's appointments by status.
type Condition string

const (
	ConditionAny    Condition = ""
	ConditionFuture Condition = "future"
	ConditionPast   Condition = "past"
)

func ParseCondition(s string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(s))); c {
	case ConditionAny, ConditionFuture, ConditionPast:
		return c, nil
	}
	return ConditionAny, fmt.Errorf("condition must be past or future, got %q", s)
}

// Status returns the status a condition selects and whether it selects one.
func (c Condition) Status() (int, bool) {
	switch c {
	case ConditionFuture:
		return StatusScheduled, true
	case ConditionPast:
		return StatusCompleted, true
	}
	return 0, false
}

// PatientFilter narrows a patient's appointment list.
type PatientFilter struct {
	Condition  Condition
	DoctorName string
}
