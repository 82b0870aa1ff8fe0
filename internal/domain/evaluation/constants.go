package evaluation

// Status tracks an evaluation through the review workflow. DISPUTED and
// FINALIZED are side states reached through the dispute process.
type Status string

const (
	StatusDraft                   Status = "DRAFT"
	StatusSelfAssessmentSubmitted Status = "SELF_ASSESSMENT_SUBMITTED"
	StatusManagerReviewSubmitted  Status = "MANAGER_REVIEW_SUBMITTED"
	StatusHRReviewed              Status = "HR_REVIEWED"
	StatusPublished               Status = "PUBLISHED"
	StatusAcknowledged            Status = "ACKNOWLEDGED"
	StatusDisputed                Status = "DISPUTED"
	StatusFinalized               Status = "FINALIZED"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:                   {StatusSelfAssessmentSubmitted, StatusManagerReviewSubmitted, StatusPublished},
	StatusSelfAssessmentSubmitted: {StatusManagerReviewSubmitted, StatusPublished},
	StatusManagerReviewSubmitted:  {StatusManagerReviewSubmitted, StatusHRReviewed, StatusPublished},
	StatusHRReviewed:              {StatusHRReviewed, StatusPublished},
	StatusPublished:               {StatusAcknowledged, StatusDisputed},
	StatusAcknowledged:            {StatusDisputed},
	StatusDisputed:                {StatusPublished, StatusAcknowledged, StatusFinalized},
	StatusFinalized:               {},
}

func (s Status) CanTransition(to Status) bool {
	for _, candidate := range statusTransitions[s] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Category buckets a 0-100 final rating.
type Category string

const (
	CategoryExceptional         Category = "EXCEPTIONAL"
	CategoryExceedsExpectations Category = "EXCEEDS_EXPECTATIONS"
	CategoryMeetsExpectations   Category = "MEETS_EXPECTATIONS"
	CategoryNeedsImprovement    Category = "NEEDS_IMPROVEMENT"
	CategoryUnsatisfactory      Category = "UNSATISFACTORY"
)

// CategoryFor classifies a final rating. The rating is already a 0-100
// percentage regardless of the template's configured scale, so the
// thresholds apply to it directly.
func CategoryFor(finalRating float64) Category {
	switch {
	case finalRating >= 90:
		return CategoryExceptional
	case finalRating >= 75:
		return CategoryExceedsExpectations
	case finalRating >= 60:
		return CategoryMeetsExpectations
	case finalRating >= 40:
		return CategoryNeedsImprovement
	default:
		return CategoryUnsatisfactory
	}
}
