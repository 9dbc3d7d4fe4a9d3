package medication

import (
	"fmt"
	"strings"
	"time"
)

type Medicine struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	DoctorID   string     `json:"doctor_id"`
	DoctorName string     `json:"doctor_name"`
	Name       string     `json:"name"`
	Dosage     string     `json:"dosage"`
	Frequency  string     `json:"frequency"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the medicine is still being taken on day.
func (m *Medicine) Active(day time.Time) bool {
	return m.EndDate == nil || !m.EndDate.Before(day)
}

// PrescribeRequest is posted by a doctor. Dates are YYYY-MM-DD; StartDate defaults to today.
type PrescribeRequest struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (r *PrescribeRequest) Normalize() {
	r.PatientID = strings.TrimSpace(r.PatientID)
	r.Name = strings.TrimSpace(r.Name)
	r.Dosage = strings.TrimSpace(r.Dosage)
	r.Frequency = strings.TrimSpace(r.Frequency)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *PrescribeRequest) Validate() error {
	switch {
	case r.PatientID == "":
		return fmt.Errorf("%w: patient_id is required", ErrInvalidRequest)
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case r.Dosage == "":
		return fmt.Errorf("%w: dosage is required", ErrInvalidRequest)
	case r.Frequency == "":
		return fmt.Errorf("%w: frequency is required", ErrInvalidRequest)
	}
	return nil
}
