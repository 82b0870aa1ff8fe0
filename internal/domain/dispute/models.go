package dispute

import "time"

type Resolution struct {
	Type           ResolutionType `json:"type"`
	AdjustedRating *float64       `json:"adjustedRating,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

type Dispute struct {
	ID                   string      `json:"id"`
	EvaluationID         string      `json:"evaluationId"`
	CycleID              string      `json:"cycleId"`
	EmployeeID           string      `json:"employeeId"`
	Reason               string      `json:"reason"`
	DisputedSectionIDs   []string    `json:"disputedSectionIds,omitempty"`
	DisputedCriterionIDs []string    `json:"disputedCriterionIds,omitempty"`
	ProposedRating       *float64    `json:"proposedRating,omitempty"`
	SupportingDocuments  []string    `json:"supportingDocuments,omitempty"`
	Status               Status      `json:"status"`
	Resolution           *Resolution `json:"resolution,omitempty"`
	ReviewerID           string      `json:"reviewerId,omitempty"`
	ReviewedAt           *time.Time  `json:"reviewedAt,omitempty"`
	SubmittedAt          time.Time   `json:"submittedAt"`
	Deadline             time.Time   `json:"deadline"`
	Escalated            bool        `json:"escalated"`
	EscalatedAt          *time.Time  `json:"escalatedAt,omitempty"`
	EscalationReason     string      `json:"escalationReason,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

type CreateInput struct {
	EvaluationID         string
	Reason               string
	DisputedSectionIDs   []string
	DisputedCriterionIDs []string
	ProposedRating       *float64
	SupportingDocuments  []string
}

type ResolveInput struct {
	Accept         bool // true → RESOLVED, false → REJECTED
	ResolutionType ResolutionType
	AdjustedRating *float64
	Notes          string
}
