package template

import "errors"

var (
	ErrNotFound = errors.New("appraisal template not found")
	ErrInUse    = errors.New("appraisal template is referenced by a cycle")
)

// ValidationError carries per-field reasons for a rejected rubric.
type ValidationError struct {
	Issues []Issue
}

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "template validation failed"
	}
	return "template validation failed: " + e.Issues[0].Field + " " + e.Issues[0].Reason
}
