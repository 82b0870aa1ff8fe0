package cycle

// Status is the cycle lifecycle state. Transitions are closed: every change
// must pass CanTransition.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusActive     Status = "ACTIVE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusArchived   Status = "ARCHIVED"
	StatusCancelled  Status = "CANCELLED"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusActive, StatusCancelled},
	StatusActive:     {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusArchived},
	StatusArchived:   {},
	StatusCancelled:  {},
}

func (s Status) CanTransition(to Status) bool {
	for _, candidate := range statusTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (s Status) Known() bool {
	_, ok := statusTransitions[s]
	return ok
}

// AssignmentStatus tracks one employee/reviewer pairing through the workflow.
type AssignmentStatus string

const (
	AssignmentNotStarted            AssignmentStatus = "NOT_STARTED"
	AssignmentSelfAssessmentPending AssignmentStatus = "SELF_ASSESSMENT_PENDING"
	AssignmentManagerReviewPending  AssignmentStatus = "MANAGER_REVIEW_PENDING"
	AssignmentHRReviewPending       AssignmentStatus = "HR_REVIEW_PENDING"
	AssignmentCompleted             AssignmentStatus = "COMPLETED"
	AssignmentDisputed              AssignmentStatus = "DISPUTED"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentNotStarted:            {AssignmentSelfAssessmentPending, AssignmentManagerReviewPending, AssignmentCompleted},
	AssignmentSelfAssessmentPending: {AssignmentManagerReviewPending, AssignmentCompleted},
	AssignmentManagerReviewPending:  {AssignmentHRReviewPending, AssignmentCompleted},
	AssignmentHRReviewPending:       {AssignmentCompleted},
	AssignmentCompleted:             {AssignmentDisputed},
	AssignmentDisputed:              {AssignmentCompleted},
}

func (s AssignmentStatus) CanTransition(to AssignmentStatus) bool {
	for _, candidate := range assignmentTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}
