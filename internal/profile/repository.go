package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	var role string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &role, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.Role = auth.Role(role)
	return &p, nil
}

// CreateProfile inserts the profile and, for patient, hospital and caretaker
// accounts, the empty role row that dashboards join against.
func (r *Repository) CreateProfile(ctx context.Context, p Profile) (*Profile, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.Name, p.Email, string(p.Role), p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, ErrDuplicateProfile
		}
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	var roleRow string
	switch p.Role {
	case auth.RolePatient:
		roleRow = `INSERT INTO patients (id) VALUES ($1)`
	case auth.RoleHospital:
		roleRow = `INSERT INTO hospitals (id) VALUES ($1)`
	case auth.RoleCaretaker:
		roleRow = `INSERT INTO caretakers (id) VALUES ($1)`
	}
	if roleRow != "" {
		if _, err := tx.ExecContext(ctx, roleRow, p.ID); err != nil {
			return nil, fmt.Errorf("failed to insert %s row: %w", p.Role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile: %w", err)
	}
	return &p, nil
}

const patientColumns = `
	pt.id, COALESCE(pr.name, ''), COALESCE(pr.email, ''), pt.dob, pt.gender,
	pt.blood_group, pt.allergies, pt.conditions, pt.caretaker_id`

func scanPatient(row interface{ Scan(...interface{}) error }) (*Patient, error) {
	var p Patient
	var dob sql.NullTime
	var bloodGroup, caretakerID sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Email, &dob, &p.Gender,
		&bloodGroup, pq.Array(&p.Allergies), pq.Array(&p.Conditions), &caretakerID)
	if err != nil {
		return nil, err
	}
	if dob.Valid {
		p.DateOfBirth = &dob.Time
	}
	if bloodGroup.Valid {
		p.BloodGroup = bloodGroup.String
	}
	if caretakerID.Valid {
		p.CaretakerID = caretakerID.String
	}
	return &p, nil
}

func (r *Repository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients pt
		LEFT JOIN profiles pr ON pr.id = pt.id
		WHERE pt.id = $1
	`, id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return p, nil
}

// ListPatients returns the patients among ids, ordered by name. Unknown ids are skipped.
func (r *Repository) ListPatients(ctx context.Context, ids []string) ([]Patient, error) {
	if len(ids) == 0 {
		return []Patient{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients pt
		LEFT JOIN profiles pr ON pr.id = pt.id
		WHERE pt.id = ANY($1::uuid[])
		ORDER BY pr.name
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

func (r *Repository) GetCaretaker(ctx context.Context, id string) (*Caretaker, error) {
	var c Caretaker
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, COALESCE(pr.name, ''), c.patient_ids, c.phone, c.relationship
		FROM caretakers c
		LEFT JOIN profiles pr ON pr.id = c.id
		WHERE c.id = $1
	`, id).Scan(&c.ID, &c.Name, pq.Array(&c.PatientIDs), &c.Phone, &c.Relationship)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCaretakerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query caretaker: %w", err)
	}
	return &c, nil
}
