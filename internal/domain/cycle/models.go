package cycle

import "time"

type Timeline struct {
	StartDate         time.Time  `json:"startDate"`
	EndDate           time.Time  `json:"endDate"`
	SelfAssessmentDue *time.Time `json:"selfAssessmentDue,omitempty"`
	ManagerReviewDue  time.Time  `json:"managerReviewDue"`
	HRReviewDue       *time.Time `json:"hrReviewDue,omitempty"`
	DisputeDeadline   *time.Time `json:"disputeDeadline,omitempty"`
}

// Scope selects the employee population. Precedence on activation:
// EmployeeIDs, then DepartmentIDs, then PositionIDs, then the template's
// applicable departments. ExcludedIDs is always subtracted last.
type Scope struct {
	EmployeeIDs   []string `json:"employeeIds,omitempty"`
	DepartmentIDs []string `json:"departmentIds,omitempty"`
	PositionIDs   []string `json:"positionIds,omitempty"`
	ExcludedIDs   []string `json:"excludedIds,omitempty"`
}

type Progress struct {
	Total          int                      `json:"total"`
	Completed      int                      `json:"completed"`
	CompletionRate float64                  `json:"completionRate"`
	ByStatus       map[AssignmentStatus]int `json:"byStatus"`
}

type Cycle struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Kind             string     `json:"kind"`
	TemplateID       string     `json:"templateId"`
	Timeline         Timeline   `json:"timeline"`
	Scope            Scope      `json:"scope"`
	Status           Status     `json:"status"`
	ResultsPublished bool       `json:"resultsPublished"`
	PublishedAt      *time.Time `json:"publishedAt,omitempty"`
	Version          int        `json:"version"`
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type Assignment struct {
	ID                     string           `json:"id"`
	CycleID                string           `json:"cycleId"`
	EmployeeID             string           `json:"employeeId"`
	ReviewerID             string           `json:"reviewerId"`
	SelfAssessmentRequired bool             `json:"selfAssessmentRequired"`
	Status                 AssignmentStatus `json:"status"`
	AssignedAt             time.Time        `json:"assignedAt"`
}

type CreateInput struct {
	Code       string
	Name       string
	Kind       string
	TemplateID string
	Timeline   Timeline
	Scope      Scope
}

// UpdateInput is a free-form field update; it never re-runs assignment
// resolution.
type UpdateInput struct {
	Name       *string
	Kind       *string
	TemplateID *string
	Timeline   *Timeline
	Scope      *Scope
}
