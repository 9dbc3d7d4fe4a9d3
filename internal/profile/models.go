package profile

import (
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
)

// UnknownPatient labels a patient whose profile row is missing.
const UnknownPatient = "Unknown Patient"

// Profile is the application's record of an account, keyed by the provider's user id.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity converts the profile to the session identity.
func (p *Profile) Identity() *auth.Identity {
	return &auth.Identity{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

type Patient struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	DateOfBirth *time.Time `json:"dob,omitempty"`
	Gender      string     `json:"gender"`
	BloodGroup  string     `json:"blood_group,omitempty"`
	Allergies   []string   `json:"allergies"`
	Conditions  []string   `json:"conditions"`
	CaretakerID string     `json:"caretaker_id,omitempty"`
}

// Summary is the short form shown in lists.
func (p *Patient) Summary() PatientSummary {
	s := PatientSummary{ID: p.ID, Name: p.Name, Gender: p.Gender}
	if s.Name == "" {
		s.Name = UnknownPatient
	}
	if s.Gender == "" {
		s.Gender = "Unknown"
	}
	if p.DateOfBirth != nil {
		s.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	return s
}

type PatientSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"dob,omitempty"`
	Gender      string `json:"gender"`
}

type Caretaker struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PatientIDs   []string `json:"patient_ids"`
	Phone        string   `json:"phone"`
	Relationship string   `json:"relationship"`
}
