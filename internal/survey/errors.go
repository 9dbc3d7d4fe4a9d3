package survey

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnknownMedicine = errors.New("medication feedback for a medicine not prescribed to the patient")
)
