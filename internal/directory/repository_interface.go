package directory

import "context"

// RepositoryInterface defines the contract for hospital and doctor data access
type RepositoryInterface interface {
	ListHospitals(ctx context.Context) ([]Hospital, error)
	GetHospital(ctx context.Context, id string) (*Hospital, error)
	ListDoctors(ctx context.Context, f DoctorFilter) ([]Doctor, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	CreateDoctor(ctx context.Context, acc DoctorAccount) (*Doctor, error)
}

var _ RepositoryInterface = (*Repository)(nil)
