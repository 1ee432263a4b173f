//go:build integration

package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/scheduler/internal/domain/identity"
	"github.com/clinic/scheduler/internal/domain/prescription"
	"github.com/clinic/scheduler/internal/domain/scheduling"
	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/auth"
	"github.com/clinic/scheduler/internal/platform/db"
)

var visitDay = time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)

func visitAt(h, m int) time.Time {
	return visitDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func newSchedulingService() *scheduling.Service {
	return scheduling.NewService(
		scheduling.NewAppointmentRepo(globalPool),
		identity.NewDoctorRepo(globalPool),
		time.UTC,
		scheduling.WithClock(func() time.Time { return visitDay.Add(-72 * time.Hour) }),
	)
}

func patientPrincipal(p *identity.Patient) *auth.Principal {
	return &auth.Principal{Identifier: p.Email, Role: auth.RolePatient, SubjectID: p.ID}
}

func TestAppointmentRepo_SlotUniqueness(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Unique", "unique@example.com", "09:00")
	repo := scheduling.NewAppointmentRepo(globalPool)

	const n = 8
	var wins atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		p := createTestPatient(t, "Patient")
		g.Go(func() error {
			err := repo.Create(gctx, &scheduling.Appointment{
				DoctorID:        doc.ID,
				PatientID:       p.ID,
				AppointmentTime: visitAt(9, 0),
			})
			switch {
			case err == nil:
				wins.Add(1)
				return nil
			case errors.Is(err, scheduling.ErrSlotTaken):
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one insert to win, got %d", got)
	}
}

func TestSchedulingService_ConcurrentBooking(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Busy", "busy@example.com", "09:00", "09:30")
	svc := newSchedulingService()

	const n = 6
	var wins, taken atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		p := createTestPatient(t, "Patient")
		g.Go(func() error {
			err := svc.Book(gctx, patientPrincipal(p), &scheduling.Appointment{
				DoctorID:        doc.ID,
				AppointmentTime: visitAt(9, 30),
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, scheduling.ErrSlotTaken):
				taken.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wins.Load() != 1 || taken.Load() != n-1 {
		t.Fatalf("wins=%d taken=%d, want 1 and %d", wins.Load(), taken.Load(), n-1)
	}

	free, err := svc.Availability(ctx, doc.ID, visitDay)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(free) != 1 || free[0] != "09:00" {
		t.Errorf("expected only 09:00 free, got %v", free)
	}
}

func TestSchedulingService_UpdateKeepsOwnSlot(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Keep", "keep@example.com", "09:00", "10:00")
	p := createTestPatient(t, "Keeper")
	svc := newSchedulingService()

	a := &scheduling.Appointment{DoctorID: doc.ID, AppointmentTime: visitAt(9, 0)}
	if err := svc.Book(ctx, patientPrincipal(p), a); err != nil {
		t.Fatalf("book: %v", err)
	}

	same := &scheduling.Appointment{ID: a.ID, DoctorID: doc.ID, AppointmentTime: visitAt(9, 0)}
	if err := svc.Update(ctx, patientPrincipal(p), same); err != nil {
		t.Fatalf("update onto own slot: %v", err)
	}

	moved := &scheduling.Appointment{ID: a.ID, DoctorID: doc.ID, AppointmentTime: visitAt(10, 0)}
	if err := svc.Update(ctx, patientPrincipal(p), moved); err != nil {
		t.Fatalf("move: %v", err)
	}
	got, err := scheduling.NewAppointmentRepo(globalPool).GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.AppointmentTime.Equal(visitAt(10, 0)) {
		t.Errorf("expected 10:00, got %s", got.AppointmentTime)
	}
}

func TestAppointmentRepo_ListByPatient(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	house := createTestDoctor(t, "Dr. House", "house@example.com", "09:00", "10:00")
	wilson := createTestDoctor(t, "Dr. Wilson", "wilson@example.com", "09:00")
	p := createTestPatient(t, "Lister")
	repo := scheduling.NewAppointmentRepo(globalPool)

	done := &scheduling.Appointment{DoctorID: house.ID, PatientID: p.ID, AppointmentTime: visitAt(10, 0)}
	for _, a := range []*scheduling.Appointment{
		{DoctorID: house.ID, PatientID: p.ID, AppointmentTime: visitAt(9, 0)},
		{DoctorID: wilson.ID, PatientID: p.ID, AppointmentTime: visitAt(9, 0)},
		done,
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.UpdateStatus(ctx, done.ID, scheduling.StatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	tests := []struct {
		name   string
		filter scheduling.PatientFilter
		want   int
	}{
		{"all", scheduling.PatientFilter{}, 3},
		{"future", scheduling.PatientFilter{Condition: scheduling.ConditionFuture}, 2},
		{"past", scheduling.PatientFilter{Condition: scheduling.ConditionPast}, 1},
		{"doctor name", scheduling.PatientFilter{DoctorName: "house"}, 2},
		{"doctor and past", scheduling.PatientFilter{DoctorName: "wil", Condition: scheduling.ConditionPast}, 0},
		{"like wildcard escaped", scheduling.PatientFilter{DoctorName: "%"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListByPatient(ctx, p.ID, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d appointments, got %d", tt.want, len(got))
			}
			for _, a := range got {
				if a.DoctorName == "" {
					t.Error("expected doctor name to be joined")
				}
			}
		})
	}
}

func TestAppointmentRepo_DayRange(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Day", "day@example.com", "09:00")
	p := createTestPatient(t, "Dana")
	repo := scheduling.NewAppointmentRepo(globalPool)

	for _, at := range []time.Time{visitAt(9, 0), visitAt(9, 0).AddDate(0, 0, 1)} {
		if err := repo.Create(ctx, &scheduling.Appointment{DoctorID: doc.ID, PatientID: p.ID, AppointmentTime: at}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	start, end := slot.DayRange(visitDay, time.UTC)
	got, err := repo.ListByDoctorAndRange(ctx, doc.ID, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 appointment on the day, got %d", len(got))
	}
	if got[0].PatientName != "Dana" {
		t.Errorf("expected patient name Dana, got %q", got[0].PatientName)
	}
}

func TestDeleteDoctor_RemovesAppointments(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Gone", "gone@example.com", "09:00")
	p := createTestPatient(t, "Orphan")
	appts := scheduling.NewAppointmentRepo(globalPool)
	doctors := identity.NewDoctorRepo(globalPool)

	a := &scheduling.Appointment{DoctorID: doc.ID, PatientID: p.ID, AppointmentTime: visitAt(9, 0)}
	if err := appts.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("restricted without purge", func(t *testing.T) {
		err := doctors.Delete(ctx, doc.ID)
		if !db.IsForeignKeyViolation(err, "") {
			t.Fatalf("expected foreign key violation, got %v", err)
		}
	})

	t.Run("service purges in one transaction", func(t *testing.T) {
		svc := identity.NewService(identity.Stores{
			Admins:   identity.NewAdminRepo(globalPool),
			Doctors:  doctors,
			Patients: identity.NewPatientRepo(globalPool),
		}, appts, db.NewTxRunner(globalPool), auth.NewBcryptVerifier(), nil)

		if err := svc.DeleteDoctor(ctx, doc.ID); err != nil {
			t.Fatalf("delete doctor: %v", err)
		}
		if _, err := appts.GetByID(ctx, a.ID); !errors.Is(err, scheduling.ErrAppointmentNotFound) {
			t.Errorf("expected appointment gone, got %v", err)
		}
		if _, err := doctors.GetByID(ctx, doc.ID); !errors.Is(err, identity.ErrDoctorNotFound) {
			t.Errorf("expected doctor gone, got %v", err)
		}
	})
}

func TestDoctorSearch_Period(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	createTestDoctor(t, "Dr. Early", "early@example.com", "08:00", "11:30")
	createTestDoctor(t, "Dr. Late", "late@example.com", "12:00", "16:00")
	createTestDoctor(t, "Dr. Both", "both@example.com", "09:00", "14:00")
	repo := identity.NewDoctorRepo(globalPool)

	for _, tt := range []struct {
		period slot.Period
		want   []string
	}{
		{slot.PeriodAM, []string{"Dr. Both", "Dr. Early"}},
		{slot.PeriodPM, []string{"Dr. Both", "Dr. Late"}},
		{slot.PeriodAny, []string{"Dr. Both", "Dr. Early", "Dr. Late"}},
	} {
		got, total, err := repo.Search(ctx, identity.DoctorFilter{Period: tt.period}, 10, 0)
		if err != nil {
			t.Fatalf("search %q: %v", tt.period, err)
		}
		if total != len(tt.want) || len(got) != len(tt.want) {
			t.Fatalf("period %q: expected %d doctors, got %d (total %d)", tt.period, len(tt.want), len(got), total)
		}
		for i, d := range got {
			if d.Name != tt.want[i] {
				t.Errorf("period %q: position %d = %q, want %q", tt.period, i, d.Name, tt.want[i])
			}
		}
	}
}

func TestPrescriptionRepo_UnknownAppointment(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	repo := prescription.NewRepo(globalPool)

	err := repo.Create(ctx, &prescription.Prescription{
		AppointmentID: uuid.New(),
		PatientName:   "Nobody",
		Medication:    "Aspirin",
	})
	if !errors.Is(err, scheduling.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestAppointmentRepo_MissingParticipants(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	doc := createTestDoctor(t, "Dr. Stay", "stay@example.com", "09:00")
	p := createTestPatient(t, "Pia")
	repo := scheduling.NewAppointmentRepo(globalPool)

	t.Run("create for deleted doctor", func(t *testing.T) {
		gone := createTestDoctor(t, "Dr. Gone", "gone-fk@example.com", "09:00")
		if err := identity.NewDoctorRepo(globalPool).Delete(ctx, gone.ID); err != nil {
			t.Fatalf("delete doctor: %v", err)
		}
		err := repo.Create(ctx, &scheduling.Appointment{DoctorID: gone.ID, PatientID: p.ID, AppointmentTime: visitAt(9, 0)})
		if !errors.Is(err, identity.ErrDoctorNotFound) {
			t.Fatalf("expected ErrDoctorNotFound, got %v", err)
		}
	})

	t.Run("create for unknown patient", func(t *testing.T) {
		err := repo.Create(ctx, &scheduling.Appointment{DoctorID: doc.ID, PatientID: uuid.New(), AppointmentTime: visitAt(9, 0)})
		if !errors.Is(err, identity.ErrPatientNotFound) {
			t.Fatalf("expected ErrPatientNotFound, got %v", err)
		}
	})

	t.Run("update onto unknown doctor", func(t *testing.T) {
		a := &scheduling.Appointment{DoctorID: doc.ID, PatientID: p.ID, AppointmentTime: visitAt(9, 0)}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		a.DoctorID = uuid.New()
		if err := repo.Update(ctx, a); !errors.Is(err, identity.ErrDoctorNotFound) {
			t.Fatalf("expected ErrDoctorNotFound, got %v", err)
		}
	})
}
