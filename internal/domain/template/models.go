package template

import "time"

type RatingScale struct {
	Type     string            `json:"type"`
	MinValue float64           `json:"minValue"`
	MaxValue float64           `json:"maxValue"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type Criterion struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Weight      float64 `json:"weight"`
}

type Section struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Weight      float64     `json:"weight"`
	Criteria    []Criterion `json:"criteria"`
}

type Template struct {
	ID                      string      `json:"id"`
	Code                    string      `json:"code"`
	Name                    string      `json:"name"`
	Kind                    string      `json:"kind"`
	RatingScale             RatingScale `json:"ratingScale"`
	Sections                []Section   `json:"sections"`
	CalculationMethod       string      `json:"calculationMethod"`
	RequiresSelfAssessment  bool        `json:"requiresSelfAssessment"`
	DisputeWindowDays       int         `json:"disputeWindowDays"`
	ApplicableDepartmentIDs []string    `json:"applicableDepartmentIds,omitempty"`
	IsActive                bool        `json:"isActive"`
	Version                 int         `json:"version"`
	CreatedBy               string      `json:"createdBy"`
	CreatedAt               time.Time   `json:"createdAt"`
	UpdatedAt               time.Time   `json:"updatedAt"`
}

// CreateInput carries everything HR supplies when defining a rubric.
type CreateInput struct {
	Code                    string
	Name                    string
	Kind                    string
	RatingScale             RatingScale
	Sections                []Section
	CalculationMethod       string
	RequiresSelfAssessment  bool
	DisputeWindowDays       int
	ApplicableDepartmentIDs []string
}

// UpdateInput is a partial update; nil fields are left untouched. Supplying
// Sections replaces the full section list and re-triggers weight validation.
type UpdateInput struct {
	Name                    *string
	Kind                    *string
	RatingScale             *RatingScale
	Sections                []Section
	CalculationMethod       *string
	RequiresSelfAssessment  *bool
	DisputeWindowDays       *int
	ApplicableDepartmentIDs []string
	IsActive                *bool
}
