package booking

import "errors"

var (
	ErrStepIncomplete   = errors.New("current step is incomplete")
	ErrLastStep         = errors.New("already at the confirmation step")
	ErrWrongStep        = errors.New("selection does not belong to the current step")
	ErrInvalidSlot      = errors.New("invalid time slot")
	ErrInvalidDate      = errors.New("invalid date")
	ErrDateNotBookable  = errors.New("date is in the past or on a weekend")
	ErrInvalidSelection = errors.New("selection is not available")
)
