package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/scheduler/internal/domain/identity"
	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
)

// AvailabilityEngine computes the declared slot labels of a doctor that are
// still free on a calendar date in the clinic's time zone.
type AvailabilityEngine struct {
	doctors      DoctorLookup
	appointments AppointmentRepository
	loc          *time.Location
}

func NewAvailabilityEngine(doctors DoctorLookup, appointments AppointmentRepository, loc *time.Location) *AvailabilityEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityEngine{doctors: doctors, appointments: appointments, loc: loc}
}

// Location is the zone dates and labels are computed in.
func (e *AvailabilityEngine) Location() *time.Location {
	return e.loc
}

// Availability returns the free labels for doctorID on date, sorted by time
// of day. An unknown doctor or one with no declared slots yields an empty
// list; only storage failures return an error.
func (e *AvailabilityEngine) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	d, err := e.doctors.GetByID(ctx, doctorID)
	if apperr.Is(err, apperr.KindNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperr.Internal("load doctor", err)
	}
	return e.freeSlots(ctx, d, date, uuid.Nil)
}

// freeSlots subtracts the labels booked on date from d's declared labels.
// The appointment with id exclude, if any, does not count as booked.
// Bookings whose label is no longer declared simply have nothing to remove.
func (e *AvailabilityEngine) freeSlots(ctx context.Context, d *identity.Doctor, date time.Time, exclude uuid.UUID) ([]string, error) {
	if len(d.AvailableTimes) == 0 {
		return []string{}, nil
	}

	start, end := slot.DayRange(date, e.loc)
	booked, err := e.appointments.ListByDoctorAndRange(ctx, d.ID, start, end)
	if err != nil {
		return nil, apperr.Internal("list booked appointments", err)
	}

	taken := make(map[string]struct{}, len(booked))
	for _, a := range booked {
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		taken[slot.Of(a.AppointmentTime, e.loc)] = struct{}{}
	}

	free := make([]string, 0, len(d.AvailableTimes))
	for _, label := range d.AvailableTimes {
		if _, ok := taken[label]; !ok {
			free = append(free, label)
		}
	}
	slot.Sort(free)
	return free, nil
}
