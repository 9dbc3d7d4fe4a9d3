package medication

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrPatientNotFound = errors.New("patient not found")
)
