package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventUserRegistered           = "user.registered"
	EventDoctorRegistered         = "doctor.registered"
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventMedicinePrescribed       = "medicine.prescribed"
	EventSurveySubmitted          = "survey.submitted"
)

const serviceName = "care-portal"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}

// UserRegisteredEvent is emitted after self-registration creates a profile.
type UserRegisteredEvent struct {
	BaseEvent
	Data UserRegisteredData `json:"data"`
}

type UserRegisteredData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DoctorRegisteredEvent is emitted when a hospital adds a doctor account.
type DoctorRegisteredEvent struct {
	BaseEvent
	Data DoctorRegisteredData `json:"data"`
}

type DoctorRegisteredData struct {
	DoctorID       string `json:"doctor_id"`
	HospitalID     string `json:"hospital_id"`
	Email          string `json:"email"`
	Specialization string `json:"specialization"`
}

// AppointmentBookedEvent is emitted once per successful booking.
type AppointmentBookedEvent struct {
	BaseEvent
	Data AppointmentBookedData `json:"data"`
}

type AppointmentBookedData struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	HospitalID    string    `json:"hospital_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

// AppointmentStatusChangedEvent carries a completed or cancelled transition.
type AppointmentStatusChangedEvent struct {
	BaseEvent
	Data AppointmentStatusChangedData `json:"data"`
}

type AppointmentStatusChangedData struct {
	AppointmentID string     `json:"appointment_id"`
	OldStatus     string     `json:"old_status"`
	NewStatus     string     `json:"new_status"`
	FollowUpDate  *time.Time `json:"follow_up_date,omitempty"`
	ChangedBy     string     `json:"changed_by"`
	ChangedAt     time.Time  `json:"changed_at"`
}

type MedicinePrescribedEvent struct {
	BaseEvent
	Data MedicinePrescribedData `json:"data"`
}

type MedicinePrescribedData struct {
	MedicineID string `json:"medicine_id"`
	PatientID  string `json:"patient_id"`
	DoctorID   string `json:"doctor_id"`
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
}

// SurveySubmittedEvent lets notification consumers reach the doctor or caretaker.
type SurveySubmittedEvent struct {
	BaseEvent
	Data SurveySubmittedData `json:"data"`
}

type SurveySubmittedData struct {
	SurveyID        string   `json:"survey_id"`
	PatientID       string   `json:"patient_id"`
	Feeling         string   `json:"feeling"`
	Symptoms        []string `json:"symptoms"`
	NotifyDoctor    bool     `json:"notify_doctor"`
	NotifyCaretaker bool     `json:"notify_caretaker"`
}
