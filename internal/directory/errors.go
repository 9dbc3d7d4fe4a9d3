package directory

import "errors"

var (
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrDuplicateDoctor  = errors.New("doctor already exists")
	ErrInvalidRequest   = errors.New("invalid request")
)
