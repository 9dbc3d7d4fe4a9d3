package directory

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	UnknownHospital = "Unknown Hospital"
	UnknownDoctor   = "Unknown Doctor"
)

type Hospital struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Specialties []string `json:"specialties"`
}

type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification"`
	Experience     int    `json:"experience"`
	HospitalID     string `json:"hospital_id,omitempty"`
	HospitalName   string `json:"hospital_name,omitempty"`
}

// DoctorFilter narrows ListDoctors. Empty fields do not filter.
type DoctorFilter struct {
	HospitalID string
	Specialty  string
}

// DoctorAccount is everything needed to persist a newly signed-up doctor.
type DoctorAccount struct {
	ID             string
	Name           string
	Email          string
	HospitalID     string
	Specialization string
	Qualification  string
	Experience     int
}

// RegisterDoctorRequest is submitted by a hospital to create a doctor login.
type RegisterDoctorRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Specialization string `json:"specialization"`
	Qualification  string `json:"qualification"`
	Experience     int    `json:"experience"`
}

// Normalize trims the free-text fields.
func (r *RegisterDoctorRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Specialization = strings.TrimSpace(r.Specialization)
	r.Qualification = strings.TrimSpace(r.Qualification)
}

// Validate returns ErrInvalidRequest describing the first failing field.
func (r *RegisterDoctorRequest) Validate() error {
	switch {
	case len([]rune(r.Name)) < 2:
		return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidRequest)
	case !validEmail(r.Email):
		return fmt.Errorf("%w: please enter a valid email address", ErrInvalidRequest)
	case len(r.Password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRequest)
	case r.Specialization == "":
		return fmt.Errorf("%w: specialization is required", ErrInvalidRequest)
	case r.Qualification == "":
		return fmt.Errorf("%w: qualification is required", ErrInvalidRequest)
	case r.Experience < 0:
		return fmt.Errorf("%w: experience must be a positive number", ErrInvalidRequest)
	}
	return nil
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
