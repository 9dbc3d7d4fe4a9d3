package appointment

import (
	"context"
	"time"

	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/pagination"
)

// ServiceInterface defines the contract for appointment operations
type ServiceInterface interface {
	Book(ctx context.Context, req BookRequest) (*Appointment, error)
	ListForPatient(ctx context.Context, patientID string) ([]PatientAppointment, error)
	ListForDoctor(ctx context.Context, doctorID string, params pagination.Params) (*DoctorAppointmentPage, error)
	UpcomingForPatients(ctx context.Context, patientIDs []string, from time.Time) ([]PatientAppointment, error)
	CountForDoctorOn(ctx context.Context, doctorID string, day time.Time) (int, error)
	UpdateStatus(ctx context.Context, actor *auth.Identity, id string, req UpdateStatusRequest) (*Appointment, error)
}

var _ ServiceInterface = (*Service)(nil)
