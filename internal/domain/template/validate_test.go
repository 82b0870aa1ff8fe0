package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() CreateInput {
	return CreateInput{
		Code: "ANNUAL-2026",
		Name: "Annual Review 2026",
		Kind: KindAnnual,
		RatingScale: RatingScale{
			Type:     ScaleNumeric,
			MinValue: 1,
			MaxValue: 5,
		},
		Sections: []Section{
			{
				ID:     "core",
				Title:  "Core Competencies",
				Weight: 60,
				Criteria: []Criterion{
					{ID: "quality", Name: "Quality of Work", Weight: 50},
					{ID: "delivery", Name: "Delivery", Weight: 50},
				},
			},
			{
				ID:     "values",
				Title:  "Company Values",
				Weight: 40,
				Criteria: []Criterion{
					{ID: "teamwork", Name: "Teamwork", Weight: 50},
					{ID: "ownership", Name: "Ownership", Weight: 50},
				},
			},
		},
		CalculationMethod: CalcWeightedAverage,
		DisputeWindowDays: 7,
	}
}

func TestValidateAcceptsBalancedWeights(t *testing.T) {
	require.NoError(t, Validate(validInput()))
}

func TestValidateAcceptsWeightsWithinTolerance(t *testing.T) {
	input := validInput()
	input.Sections[0].Criteria = []Criterion{
		{ID: "a", Name: "A", Weight: 33.33},
		{ID: "b", Name: "B", Weight: 33.33},
		{ID: "c", Name: "C", Weight: 33.34},
	}
	require.NoError(t, Validate(input))
}

func TestValidateRejectsSectionWeightSum(t *testing.T) {
	input := validInput()
	input.Sections[0].Weight = 70 // 70 + 40 = 110

	err := Validate(input)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Error(), "section weights must sum to 100")
}

func TestValidateRejectsCriterionWeightSum(t *testing.T) {
	input := validInput()
	input.Sections[1].Criteria[0].Weight = 45 // 45 + 50 = 95

	var verr *ValidationError
	require.ErrorAs(t, Validate(input), &verr)

	found := false
	for _, issue := range verr.Issues {
		if issue.Reason == "criterion weights must sum to 100" {
			found = true
		}
	}
	assert.True(t, found, "expected a criterion weight issue, got %+v", verr.Issues)
}

func TestValidateRejectsWeightsJustOutsideTolerance(t *testing.T) {
	input := validInput()
	input.Sections[0].Weight = 60.02 // sum 100.02, tolerance is 0.01

	var verr *ValidationError
	require.ErrorAs(t, Validate(input), &verr)
}

func TestValidateStructuralIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing code", func(in *CreateInput) { in.Code = "" }},
		{"unknown kind", func(in *CreateInput) { in.Kind = "QUARTERLY" }},
		{"unknown scale type", func(in *CreateInput) { in.RatingScale.Type = "stars" }},
		{"inverted scale", func(in *CreateInput) { in.RatingScale.MinValue = 5; in.RatingScale.MaxValue = 1 }},
		{"no sections", func(in *CreateInput) { in.Sections = nil }},
		{"empty criteria", func(in *CreateInput) { in.Sections[0].Criteria = nil }},
		{"duplicate section id", func(in *CreateInput) { in.Sections[1].ID = in.Sections[0].ID }},
		{"duplicate criterion id", func(in *CreateInput) { in.Sections[0].Criteria[1].ID = "quality" }},
		{"negative dispute window", func(in *CreateInput) { in.DisputeWindowDays = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			var verr *ValidationError
			require.ErrorAs(t, Validate(input), &verr)
			assert.NotEmpty(t, verr.Issues)
		})
	}
}
