package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
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

const appointmentColumns = `a.id, a.patient_id, a.doctor_id, a.hospital_id, a.date, a.status, a.notes, a.follow_up, a.created_at`

func scanAppointment(row scanner, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	var status string
	var notes sql.NullString
	var followUp sql.NullTime

	dest := []interface{}{&a.ID, &a.PatientID, &a.DoctorID, &a.HospitalID, &a.DateTime, &status, &notes, &followUp, &a.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if notes.Valid {
		a.Notes = notes.String
	}
	if followUp.Valid {
		a.FollowUp = &followUp.Time
	}
	return &a, nil
}

func (r *Repository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO appointments AS a (id, patient_id, doctor_id, hospital_id, date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.DoctorID, a.HospitalID, a.DateTime, string(a.Status), a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert appointment: %w", err)
	}
	return created, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query appointment: %w", err)
	}
	return a, nil
}

const patientListSelect = `
	SELECT ` + appointmentColumns + `, dp.name, hp.name, d.specialization
	FROM appointments a
	LEFT JOIN doctors d ON d.id = a.doctor_id
	LEFT JOIN profiles dp ON dp.id = a.doctor_id
	LEFT JOIN profiles hp ON hp.id = a.hospital_id`

func (r *Repository) queryPatientList(ctx context.Context, query string, args ...interface{}) ([]PatientAppointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	list := []PatientAppointment{}
	for rows.Next() {
		var doctorName, hospitalName, specialization sql.NullString
		a, err := scanAppointment(rows, &doctorName, &hospitalName, &specialization)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		list = append(list, PatientAppointment{
			Appointment:    *a,
			DoctorName:     orDefault(doctorName, directory.UnknownDoctor),
			HospitalName:   orDefault(hospitalName, directory.UnknownHospital),
			Specialization: orDefault(specialization, DefaultSpecialization),
		})
	}
	return list, rows.Err()
}

func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]PatientAppointment, error) {
	return r.queryPatientList(ctx, patientListSelect+`
		WHERE a.patient_id = $1
		ORDER BY a.date ASC`, patientID)
}

func (r *Repository) ListUpcomingByPatients(ctx context.Context, patientIDs []string, from time.Time) ([]PatientAppointment, error) {
	if len(patientIDs) == 0 {
		return []PatientAppointment{}, nil
	}
	return r.queryPatientList(ctx, patientListSelect+`
		WHERE a.patient_id = ANY($1::uuid[]) AND a.date >= $2 AND a.status = 'scheduled'
		ORDER BY a.date ASC`, pq.Array(patientIDs), from)
}

func (r *Repository) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]DoctorAppointment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`, pp.name, pt.dob, pt.gender
		FROM appointments a
		LEFT JOIN profiles pp ON pp.id = a.patient_id
		LEFT JOIN patients pt ON pt.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.date ASC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	list := []DoctorAppointment{}
	for rows.Next() {
		var name, gender sql.NullString
		var dob sql.NullTime
		a, err := scanAppointment(rows, &name, &dob, &gender)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan appointment: %w", err)
		}
		da := DoctorAppointment{
			Appointment:   *a,
			PatientName:   orDefault(name, profile.UnknownPatient),
			PatientGender: orDefault(gender, "Unknown"),
		}
		if dob.Valid {
			da.PatientDOB = dob.Time.Format("2006-01-02")
		}
		list = append(list, da)
	}
	return list, total, rows.Err()
}

func (r *Repository) CountByDoctorBetween(ctx context.Context, doctorID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND date >= $2 AND date < $3 AND status <> 'cancelled'
	`, doctorID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

// UpdateStatus moves an appointment from one status to another. The update is
// conditional on the current status so concurrent changes cannot both win.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to Status, followUp *time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, `
		UPDATE appointments AS a
		SET status = $3, follow_up = COALESCE($4, a.follow_up), updated_at = now()
		WHERE a.id = $1 AND a.status = $2
		RETURNING `+appointmentColumns,
		id, string(from), string(to), followUp))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return a, nil
}

func orDefault(s sql.NullString, def string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return def
}
