package profile

import "context"

// RepositoryInterface defines the contract for profile data access
type RepositoryInterface interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) (*Profile, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	ListPatients(ctx context.Context, ids []string) ([]Patient, error)
	GetCaretaker(ctx context.Context, id string) (*Caretaker, error)
}

var _ RepositoryInterface = (*Repository)(nil)
