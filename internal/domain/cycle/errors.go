package cycle

import "errors"

var (
	ErrNotFound           = errors.New("appraisal cycle not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrInvalidState       = errors.New("cycle is not in a state that allows this operation")
	ErrInvalidTimeline    = errors.New("cycle end date must be after start date")
	ErrEmptyScope         = errors.New("cycle scope resolves to no assignable employees")
	ErrStaleVersion       = errors.New("cycle was modified concurrently, reload and retry")
)
