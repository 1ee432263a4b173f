package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/scheduler/internal/domain/identity"
	"github.com/clinic/scheduler/internal/platform/db"
)

const (
	// constraintDoctorSlot is the unique (doctor_id, appointment_time) constraint.
	constraintDoctorSlot = "appointments_doctor_slot_key"

	constraintDoctorFK  = "appointments_doctor_id_fkey"
	constraintPatientFK = "appointments_patient_id_fkey"
)

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const appointmentCols = `a.id, a.doctor_id, a.patient_id, a.appointment_time, a.status, a.created_at, a.updated_at`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, appointment_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.DoctorID, a.PatientID, a.AppointmentTime, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	return writeErr(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments a WHERE a.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET doctor_id = $2, patient_id = $3, appointment_time = $4, status = $5, updated_at = $6
		WHERE id = $1`,
		a.ID, a.DoctorID, a.PatientID, a.AppointmentTime, a.Status, a.UpdatedAt,
	)
	if err != nil {
		return writeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// writeErr maps constraint failures on insert and update. A doctor deleted
// between validation and write surfaces as a foreign key failure.
func writeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, constraintDoctorSlot):
		return ErrSlotTaken
	case db.IsForeignKeyViolation(err, constraintDoctorFK):
		return identity.ErrDoctorNotFound
	case db.IsForeignKeyViolation(err, constraintPatientFK):
		return identity.ErrPatientNotFound
	}
	return err
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepoPG) DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *appointmentRepoPG) ListByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+`, p.name
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1 AND a.appointment_time >= $2 AND a.appointment_time < $3
		ORDER BY a.appointment_time`,
		doctorID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status,
			&a.CreatedAt, &a.UpdatedAt, &a.PatientName); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f PatientFilter) ([]*Appointment, error) {
	where := []string{"a.patient_id = $1"}
	args := []interface{}{patientID}
	if status, ok := f.Condition.Status(); ok {
		args = append(args, status)
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if f.DoctorName != "" {
		args = append(args, "%"+escapeLike(f.DoctorName)+"%")
		where = append(where, fmt.Sprintf("d.name ILIKE $%d", len(args)))
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+`, d.name
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY a.appointment_time`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status,
			&a.CreatedAt, &a.UpdatedAt, &a.DoctorName); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
