package appointment

import (
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/pagination"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DefaultSpecialization labels appointments whose doctor row is missing.
const DefaultSpecialization = "General Medicine"

func (s Status) Valid() bool {
	return s == StatusScheduled || s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether s may move to next. Only scheduled
// appointments change, and only to a terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusScheduled && (next == StatusCompleted || next == StatusCancelled)
}

type Appointment struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	DoctorID   string     `json:"doctor_id"`
	HospitalID string     `json:"hospital_id"`
	DateTime   time.Time  `json:"date"`
	Status     Status     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	FollowUp   *time.Time `json:"follow_up,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PatientAppointment is an appointment as listed on the patient dashboard.
type PatientAppointment struct {
	Appointment
	DoctorName     string `json:"doctor_name"`
	HospitalName   string `json:"hospital_name"`
	Specialization string `json:"specialization"`
}

// DoctorAppointment is an appointment as listed on the doctor dashboard.
type DoctorAppointment struct {
	Appointment
	PatientName   string `json:"patient_name"`
	PatientDOB    string `json:"patient_dob,omitempty"`
	PatientGender string `json:"patient_gender"`
}

type DoctorAppointmentPage struct {
	Appointments []DoctorAppointment `json:"appointments"`
	Pagination   pagination.Meta     `json:"pagination"`
}

// BookRequest creates a scheduled appointment.
type BookRequest struct {
	PatientID  string
	DoctorID   string
	HospitalID string
	DateTime   time.Time
	Notes      string
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
	// FollowUpDate is YYYY-MM-DD and only meaningful when completing.
	FollowUpDate string `json:"follow_up_date,omitempty"`
}
