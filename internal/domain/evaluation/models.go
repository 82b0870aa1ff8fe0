package evaluation

import "time"

// CriterionRating is one actor's rating of one criterion. A nil Rating means
// the criterion was left unrated and is skipped by the scorer.
type CriterionRating struct {
	CriterionID string   `json:"criterionId"`
	Rating      *float64 `json:"rating,omitempty"`
	Comment     string   `json:"comment,omitempty"`
}

type SectionRatings struct {
	SectionID string            `json:"sectionId"`
	Ratings   []CriterionRating `json:"ratings"`
}

type SelfAssessment struct {
	Sections        []SectionRatings `json:"sections"`
	Accomplishments string           `json:"accomplishments,omitempty"`
	Strengths       string           `json:"strengths,omitempty"`
	AreasToImprove  string           `json:"areasToImprove,omitempty"`
	SubmittedAt     time.Time        `json:"submittedAt"`
}

type ManagerEvaluation struct {
	Sections                []SectionRatings `json:"sections"`
	Narrative               string           `json:"narrative,omitempty"`
	Strengths               string           `json:"strengths,omitempty"`
	AreasForDevelopment     string           `json:"areasForDevelopment,omitempty"`
	TrainingRecommendations string           `json:"trainingRecommendations,omitempty"`
	AttendanceRating        *float64         `json:"attendanceRating,omitempty"`
	PunctualityRating       *float64         `json:"punctualityRating,omitempty"`
	SubmittedAt             time.Time        `json:"submittedAt"`
}

type HRReview struct {
	ReviewerID       string    `json:"reviewerId"`
	Comments         string    `json:"comments,omitempty"`
	AdjustedRating   *float64  `json:"adjustedRating,omitempty"`
	AdjustmentReason string    `json:"adjustmentReason,omitempty"`
	ReviewedAt       time.Time `json:"reviewedAt"`
}

// CriterionScore is the scored form of one rated criterion.
type CriterionScore struct {
	CriterionID string  `json:"criterionId"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Rating      float64 `json:"rating"`
	Score       float64 `json:"score"`
}

type SectionScore struct {
	SectionID string           `json:"sectionId"`
	Title     string           `json:"title"`
	Weight    float64          `json:"weight"`
	Score     float64          `json:"score"`
	Criteria  []CriterionScore `json:"criteria"`
}

// ScoreBreakdown is the full output of the weighted scorer.
type ScoreBreakdown struct {
	Sections    []SectionScore `json:"sections"`
	FinalRating float64        `json:"finalRating"`
	Category    Category       `json:"category"`
}

type Evaluation struct {
	ID                string             `json:"id"`
	CycleID           string             `json:"cycleId"`
	AssignmentID      string             `json:"assignmentId"`
	TemplateID        string             `json:"templateId"`
	EmployeeID        string             `json:"employeeId"`
	ReviewerID        string             `json:"reviewerId"`
	SelfAssessment    *SelfAssessment    `json:"selfAssessment,omitempty"`
	ManagerEvaluation *ManagerEvaluation `json:"managerEvaluation,omitempty"`
	HRReview          *HRReview          `json:"hrReview,omitempty"`
	Breakdown         *ScoreBreakdown    `json:"breakdown,omitempty"`
	FinalRating       *float64           `json:"finalRating,omitempty"`
	Category          Category           `json:"category,omitempty"`
	Status            Status             `json:"status"`
	PublishedAt       *time.Time         `json:"publishedAt,omitempty"`
	AcknowledgedAt    *time.Time         `json:"acknowledgedAt,omitempty"`
	EmployeeComments  string             `json:"employeeComments,omitempty"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type SelfAssessmentInput struct {
	Sections        []SectionRatings
	Accomplishments string
	Strengths       string
	AreasToImprove  string
}

type ManagerInput struct {
	Sections                []SectionRatings
	Narrative               string
	Strengths               string
	AreasForDevelopment     string
	TrainingRecommendations string
	AttendanceRating        *float64
	PunctualityRating       *float64
}

type HRReviewInput struct {
	Comments         string
	AdjustedRating   *float64
	AdjustmentReason string
}
