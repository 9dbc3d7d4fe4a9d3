package medication

import "context"

// RepositoryInterface defines the contract for medicine data access
type RepositoryInterface interface {
	ListByPatient(ctx context.Context, patientID string) ([]Medicine, error)
	Create(ctx context.Context, m Medicine) (*Medicine, error)
}

var _ RepositoryInterface = (*Repository)(nil)
