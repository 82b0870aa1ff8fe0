package dispute

// Status is the dispute lifecycle. A dispute is immutable once it reaches
// RESOLVED, REJECTED, or WITHDRAWN.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusResolved    Status = "RESOLVED"
	StatusRejected    Status = "REJECTED"
	StatusWithdrawn   Status = "WITHDRAWN"
)

var statusTransitions = map[Status][]Status{
	StatusSubmitted:   {StatusUnderReview, StatusResolved, StatusRejected, StatusWithdrawn},
	StatusUnderReview: {StatusResolved, StatusRejected, StatusWithdrawn},
	StatusResolved:    {},
	StatusRejected:    {},
	StatusWithdrawn:   {},
}

func (s Status) CanTransition(to Status) bool {
	for _, candidate := range statusTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Open reports whether the dispute still blocks new disputes on the same
// evaluation.
func (s Status) Open() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// ResolutionType records how HR settled the dispute.
type ResolutionType string

const (
	ResolutionUpheldOriginal      ResolutionType = "UPHELD_ORIGINAL"
	ResolutionRatingAdjusted      ResolutionType = "RATING_ADJUSTED"
	ResolutionReevaluationOrdered ResolutionType = "REEVALUATION_ORDERED"
)

func KnownResolutionType(rt ResolutionType) bool {
	switch rt {
	case ResolutionUpheldOriginal, ResolutionRatingAdjusted, ResolutionReevaluationOrdered:
		return true
	}
	return false
}
