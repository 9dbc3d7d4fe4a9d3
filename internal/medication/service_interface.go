package medication

import "context"

// ServiceInterface defines the contract for medication operations
type ServiceInterface interface {
	ListForPatient(ctx context.Context, patientID string) ([]Medicine, error)
	Prescribe(ctx context.Context, doctorID string, req PrescribeRequest) (*Medicine, error)
}

var _ ServiceInterface = (*Service)(nil)
