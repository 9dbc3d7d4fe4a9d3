package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStatusConflict      = errors.New("appointment status changed concurrently")
	ErrInvalidRequest      = errors.New("invalid appointment request")
	ErrForbidden           = errors.New("not allowed to modify this appointment")
)
