package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanHospital(row interface{ Scan(...interface{}) error }) (*Hospital, error) {
	var h Hospital
	var name sql.NullString
	if err := row.Scan(&h.ID, &name, &h.Address, &h.Phone, pq.Array(&h.Specialties)); err != nil {
		return nil, err
	}
	h.Name = UnknownHospital
	if name.Valid && name.String != "" {
		h.Name = name.String
	}
	if h.Specialties == nil {
		h.Specialties = []string{}
	}
	return &h, nil
}

func (r *Repository) ListHospitals(ctx context.Context) ([]Hospital, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT h.id, p.name, h.address, h.phone, h.specialties
		FROM hospitals h
		LEFT JOIN profiles p ON p.id = h.id
		ORDER BY p.name NULLS LAST, h.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hospitals: %w", err)
	}
	defer rows.Close()

	hospitals := []Hospital{}
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hospital: %w", err)
		}
		hospitals = append(hospitals, *h)
	}
	return hospitals, rows.Err()
}

func (r *Repository) GetHospital(ctx context.Context, id string) (*Hospital, error) {
	h, err := scanHospital(r.db.QueryRowContext(ctx, `
		SELECT h.id, p.name, h.address, h.phone, h.specialties
		FROM hospitals h
		LEFT JOIN profiles p ON p.id = h.id
		WHERE h.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHospitalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query hospital: %w", err)
	}
	return h, nil
}

const doctorSelect = `
	SELECT d.id, p.name, p.email, d.specialization, d.qualification, d.experience,
	       d.hospital_id, hp.name
	FROM doctors d
	LEFT JOIN profiles p ON p.id = d.id
	LEFT JOIN profiles hp ON hp.id = d.hospital_id`

func scanDoctor(row interface{ Scan(...interface{}) error }) (*Doctor, error) {
	var d Doctor
	var name, email, hospitalID, hospitalName sql.NullString
	err := row.Scan(&d.ID, &name, &email, &d.Specialization, &d.Qualification, &d.Experience,
		&hospitalID, &hospitalName)
	if err != nil {
		return nil, err
	}
	d.Name = UnknownDoctor
	if name.Valid && name.String != "" {
		d.Name = name.String
	}
	if email.Valid {
		d.Email = email.String
	}
	if hospitalID.Valid {
		d.HospitalID = hospitalID.String
		d.HospitalName = UnknownHospital
		if hospitalName.Valid && hospitalName.String != "" {
			d.HospitalName = hospitalName.String
		}
	}
	return &d, nil
}

// ListDoctors applies the same hospital and specialty filter as booking.Doctors.
func (r *Repository) ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.HospitalID != "" {
		args = append(args, f.HospitalID)
		where = append(where, fmt.Sprintf("d.hospital_id = $%d", len(args)))
	}
	if f.Specialty != "" {
		args = append(args, f.Specialty)
		where = append(where, fmt.Sprintf("d.specialization = $%d", len(args)))
	}

	query := doctorSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY p.name NULLS LAST, d.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}
	defer rows.Close()

	doctors := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

func (r *Repository) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	d, err := scanDoctor(r.db.QueryRowContext(ctx, doctorSelect+"\n\tWHERE d.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query doctor: %w", err)
	}
	return d, nil
}

// CreateDoctor inserts the profile and doctor rows in one transaction and adds
// the specialization to the hospital's list so the booking wizard can reach it.
func (r *Repository) CreateDoctor(ctx context.Context, acc DoctorAccount) (*Doctor, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, role)
		VALUES ($1, $2, $3, 'doctor')
	`, acc.ID, acc.Name, acc.Email)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, ErrDuplicateDoctor
		}
		return nil, fmt.Errorf("failed to insert doctor profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO doctors (id, hospital_id, specialization, qualification, experience)
		VALUES ($1, $2, $3, $4, $5)
	`, acc.ID, acc.HospitalID, acc.Specialization, acc.Qualification, acc.Experience)
	if err != nil {
		return nil, fmt.Errorf("failed to insert doctor: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE hospitals
		SET specialties = array_append(COALESCE(specialties, '{}'), $2)
		WHERE id = $1 AND NOT ($2 = ANY(COALESCE(specialties, '{}')))
	`, acc.HospitalID, acc.Specialization)
	if err != nil {
		return nil, fmt.Errorf("failed to update hospital specialties: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit doctor: %w", err)
	}

	return &Doctor{
		ID:             acc.ID,
		Name:           acc.Name,
		Email:          acc.Email,
		Specialization: acc.Specialization,
		Qualification:  acc.Qualification,
		Experience:     acc.Experience,
		HospitalID:     acc.HospitalID,
	}, nil
}
