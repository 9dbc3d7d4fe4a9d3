package appointment

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for appointment data access
type RepositoryInterface interface {
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	Get(ctx context.Context, id string) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]PatientAppointment, error)
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]DoctorAppointment, int, error)
	ListUpcomingByPatients(ctx context.Context, patientIDs []string, from time.Time) ([]PatientAppointment, error)
	CountByDoctorBetween(ctx context.Context, doctorID string, from, to time.Time) (int, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, followUp *time.Time) (*Appointment, error)
}

var _ RepositoryInterface = (*Repository)(nil)
