package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/db"
)

const (
	constraintAdminUsername = "admins_username_key"
	constraintDoctorEmail   = "doctors_email_key"
	constraintPatientEmail  = "patients_email_key"
	constraintPatientPhone  = "patients_phone_key"
)

// -- Admin Repository --

type adminRepoPG struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) AdminRepository {
	return &adminRepoPG{pool: pool}
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	_, err := db.QuerierFromContext(ctx, r.pool).Exec(ctx,
		`INSERT INTO admins (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	if db.IsUniqueViolation(err, constraintAdminUsername) {
		return ErrAdminExists
	}
	return err
}

func (r *adminRepoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := db.QuerierFromContext(ctx, r.pool).QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, name, specialty, email, phone, password_hash, available_times, created_at, updated_at`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	_, err := db.QuerierFromContext(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctors (`+doctorCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Name, d.Specialty, d.Email, d.Phone, d.PasswordHash, nonNil(d.AvailableTimes), d.CreatedAt, d.UpdatedAt,
	)
	if db.IsUniqueViolation(err, constraintDoctorEmail) {
		return ErrDoctorEmailTaken
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.getOne(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id)
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return r.getOne(ctx, `SELECT `+doctorCols+` FROM doctors WHERE email = $1`, email)
}

func (r *doctorRepoPG) getOne(ctx context.Context, query string, arg interface{}) (*Doctor, error) {
	d, err := scanDoctor(db.QuerierFromContext(ctx, r.pool).QueryRow(ctx, query, arg))
	if db.IsNoRows(err) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	d.UpdatedAt = time.Now().UTC()
	tag, err := db.QuerierFromContext(ctx, r.pool).Exec(ctx, `
		UPDATE doctors SET name = $2, specialty = $3, email = $4, phone = $5,
			password_hash = $6, available_times = $7, updated_at = $8
		WHERE id = $1`,
		d.ID, d.Name, d.Specialty, d.Email, d.Phone, d.PasswordHash, nonNil(d.AvailableTimes), d.UpdatedAt,
	)
	if db.IsUniqueViolation(err, constraintDoctorEmail) {
		return ErrDoctorEmailTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.QuerierFromContext(ctx, r.pool).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *doctorRepoPG) Search(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	var where []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Name != "" {
		add("name ILIKE $%d", "%"+escapeLike(f.Name)+"%")
	}
	if f.Specialty != "" {
		add("LOWER(specialty) = LOWER($%d)", f.Specialty)
	}
	switch f.Period {
	case slot.PeriodAM:
		where = append(where, "EXISTS (SELECT 1 FROM unnest(available_times) AS t WHERE t < '12:00')")
	case slot.PeriodPM:
		where = append(where, "EXISTS (SELECT 1 FROM unnest(available_times) AS t WHERE t >= '12:00')")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := db.QuerierFromContext(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT `+doctorCols+` FROM doctors%s ORDER BY name, id LIMIT $%d OFFSET $%d`,
			clause, len(args)+1, len(args)+2),
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Email, &d.Phone, &d.PasswordHash,
		&d.AvailableTimes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, name, email, phone, address, password_hash, created_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	_, err := db.QuerierFromContext(ctx, r.pool).Exec(ctx, `
		INSERT INTO patients (`+patientCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.PasswordHash, p.CreatedAt,
	)
	if db.IsUniqueViolation(err, constraintPatientEmail) || db.IsUniqueViolation(err, constraintPatientPhone) {
		return ErrPatientExists
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return r.getOne(ctx, `SELECT `+patientCols+` FROM patients WHERE email = $1`, email)
}

func (r *patientRepoPG) getOne(ctx context.Context, query string, arg interface{}) (*Patient, error) {
	var p Patient
	err := db.QuerierFromContext(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.PasswordHash, &p.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := db.QuerierFromContext(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE email = $1 OR phone = $2)`, email, phone,
	).Scan(&exists)
	return exists, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
