package survey

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const surveyColumns = `s.id, s.patient_id, s.date, s.feeling, s.symptoms, s.notes, s.notify_doctor, s.notify_caretaker, s.created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row scanner) (*Survey, error) {
	var s Survey
	var feeling string
	var notes sql.NullString
	var symptoms pq.StringArray

	if err := row.Scan(&s.ID, &s.PatientID, &s.Date, &feeling, &symptoms, &notes,
		&s.NotifyDoctor, &s.NotifyCaretaker, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Feeling = Feeling(feeling)
	s.Symptoms = []string(symptoms)
	if s.Symptoms == nil {
		s.Symptoms = []string{}
	}
	s.Notes = notes.String
	s.MedicationFeedback = map[string]MedicationFeedback{}
	return &s, nil
}

// Create inserts the survey and its medication feedback rows in one transaction.
func (r *Repository) Create(ctx context.Context, s Survey) (*Survey, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	created, err := scanSurvey(tx.QueryRowContext(ctx, `
		INSERT INTO health_surveys AS s (id, patient_id, date, feeling, symptoms, notes, notify_doctor, notify_caretaker)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		RETURNING `+surveyColumns,
		s.ID, s.PatientID, s.Date, string(s.Feeling), pq.Array(s.Symptoms), s.Notes, s.NotifyDoctor, s.NotifyCaretaker))
	if err != nil {
		return nil, fmt.Errorf("failed to insert survey: %w", err)
	}

	for medicineID, fb := range s.MedicationFeedback {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO medication_feedback (id, survey_id, medicine_id, effective, side_effects)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		`, uuid.NewString(), created.ID, medicineID, fb.Effective, fb.SideEffects); err != nil {
			return nil, fmt.Errorf("failed to insert medication feedback: %w", err)
		}
		created.MedicationFeedback[medicineID] = fb
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit survey: %w", err)
	}
	return created, nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID string, limit int) ([]Survey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+surveyColumns+`
		FROM health_surveys s
		WHERE s.patient_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query surveys: %w", err)
	}
	defer rows.Close()

	surveys := []Survey{}
	index := map[string]int{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		index[s.ID] = len(surveys)
		surveys = append(surveys, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(surveys) == 0 {
		return surveys, nil
	}

	ids := make([]string, 0, len(surveys))
	for _, s := range surveys {
		ids = append(ids, s.ID)
	}
	if err := r.attachFeedback(ctx, ids, func(surveyID string) map[string]MedicationFeedback {
		return surveys[index[surveyID]].MedicationFeedback
	}); err != nil {
		return nil, err
	}
	return surveys, nil
}

// LatestByPatients returns each patient's most recent survey, keyed by patient id.
func (r *Repository) LatestByPatients(ctx context.Context, patientIDs []string) (map[string]Survey, error) {
	out := map[string]Survey{}
	if len(patientIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (s.patient_id) `+surveyColumns+`
		FROM health_surveys s
		WHERE s.patient_id = ANY($1::uuid[])
		ORDER BY s.patient_id, s.created_at DESC
	`, pq.Array(patientIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest surveys: %w", err)
	}
	defer rows.Close()

	bySurvey := map[string]string{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan survey: %w", err)
		}
		out[s.PatientID] = *s
		bySurvey[s.ID] = s.PatientID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(bySurvey))
	for id := range bySurvey {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.attachFeedback(ctx, ids, func(surveyID string) map[string]MedicationFeedback {
		return out[bySurvey[surveyID]].MedicationFeedback
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) attachFeedback(ctx context.Context, surveyIDs []string, target func(surveyID string) map[string]MedicationFeedback) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT survey_id, medicine_id, effective, side_effects
		FROM medication_feedback
		WHERE survey_id = ANY($1::uuid[])
	`, pq.Array(surveyIDs))
	if err != nil {
		return fmt.Errorf("failed to query medication feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var surveyID, medicineID string
		var fb MedicationFeedback
		var sideEffects sql.NullString
		if err := rows.Scan(&surveyID, &medicineID, &fb.Effective, &sideEffects); err != nil {
			return fmt.Errorf("failed to scan medication feedback: %w", err)
		}
		fb.SideEffects = sideEffects.String
		target(surveyID)[medicineID] = fb
	}
	return rows.Err()
}
