package survey

import "context"

// RepositoryInterface defines the contract for survey data access
type RepositoryInterface interface {
	Create(ctx context.Context, s Survey) (*Survey, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Survey, error)
	LatestByPatients(ctx context.Context, patientIDs []string) (map[string]Survey, error)
}

var _ RepositoryInterface = (*Repository)(nil)
