package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("evaluation not found")
	ErrInvalidState = errors.New("evaluation is not in a state that allows this operation")
	ErrNotOwner     = errors.New("evaluation belongs to a different employee")
	ErrNotReviewer  = errors.New("evaluation is assigned to a different reviewer")
	ErrStaleVersion = errors.New("evaluation was modified concurrently, reload and retry")
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports rating submissions that do not fit the template:
// unknown section or criterion ids, ratings outside the scale.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Reason)
	}
	return "invalid evaluation submission: " + strings.Join(parts, "; ")
}
