package dispute

import "errors"

var (
	ErrNotFound        = errors.New("dispute not found")
	ErrNotOwner        = errors.New("evaluation belongs to a different employee")
	ErrInvalidState    = errors.New("dispute is not in a state that allows this operation")
	ErrNotDisputable   = errors.New("only published or acknowledged evaluations can be disputed")
	ErrDuplicateActive = errors.New("an active dispute already exists for this evaluation")
	ErrDeadlinePassed  = errors.New("dispute window for this evaluation has closed")
)
