package directory

import "context"

// ServiceInterface defines the contract for directory operations
type ServiceInterface interface {
	ListHospitals(ctx context.Context) ([]Hospital, error)
	GetHospital(ctx context.Context, id string) (*Hospital, error)
	ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	RegisterDoctor(ctx context.Context, hospitalID string, req RegisterDoctorRequest) (*Doctor, error)
}

var _ ServiceInterface = (*Service)(nil)
