package medication

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedicine(row scanner) (*Medicine, error) {
	var m Medicine
	var endDate sql.NullTime
	var notes, doctorName sql.NullString

	if err := row.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.Name, &m.Dosage, &m.Frequency,
		&m.StartDate, &endDate, &notes, &m.CreatedAt, &doctorName); err != nil {
		return nil, err
	}
	if endDate.Valid {
		m.EndDate = &endDate.Time
	}
	m.Notes = notes.String
	m.DoctorName = directory.UnknownDoctor
	if doctorName.Valid && doctorName.String != "" {
		m.DoctorName = doctorName.String
	}
	return &m, nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]Medicine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.patient_id, m.doctor_id, m.name, m.dosage, m.frequency,
		       m.start_date, m.end_date, m.notes, m.created_at, p.name
		FROM medicines m
		LEFT JOIN profiles p ON p.id = m.doctor_id
		WHERE m.patient_id = $1
		ORDER BY m.start_date DESC, m.created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicines: %w", err)
	}
	defer rows.Close()

	medicines := []Medicine{}
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicines = append(medicines, *m)
	}
	return medicines, rows.Err()
}

func (r *Repository) Create(ctx context.Context, m Medicine) (*Medicine, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO medicines (id, patient_id, doctor_id, name, dosage, frequency, start_date, end_date, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
			RETURNING *
		)
		SELECT ins.id, ins.patient_id, ins.doctor_id, ins.name, ins.dosage, ins.frequency,
		       ins.start_date, ins.end_date, ins.notes, ins.created_at, p.name
		FROM ins
		LEFT JOIN profiles p ON p.id = ins.doctor_id
	`, m.ID, m.PatientID, m.DoctorID, m.Name, m.Dosage, m.Frequency, m.StartDate, m.EndDate, m.Notes)

	created, err := scanMedicine(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to insert medicine: %w", err)
	}
	return created, nil
}
