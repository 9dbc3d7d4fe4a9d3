package profile

import "errors"

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrDuplicateProfile  = errors.New("profile already exists")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrCaretakerNotFound = errors.New("caretaker not found")
)
