package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/domain/template"
)

func scaleFivePoint() template.RatingScale {
	return template.RatingScale{Type: template.ScaleNumeric, MinValue: 1, MaxValue: 5}
}

// twoSectionTemplate: sections weighted 60/40, each with two 50/50 criteria.
func twoSectionTemplate() template.Template {
	return template.Template{
		ID:          "tmpl-1",
		RatingScale: scaleFivePoint(),
		Sections: []template.Section{
			{
				ID: "sec-quality", Title: "Quality of Work", Weight: 60,
				Criteria: []template.Criterion{
					{ID: "crit-accuracy", Name: "Accuracy", Weight: 50},
					{ID: "crit-thoroughness", Name: "Thoroughness", Weight: 50},
				},
			},
			{
				ID: "sec-teamwork", Title: "Teamwork", Weight: 40,
				Criteria: []template.Criterion{
					{ID: "crit-collaboration", Name: "Collaboration", Weight: 50},
					{ID: "crit-communication", Name: "Communication", Weight: 50},
				},
			},
		},
	}
}

func rate(v float64) *float64 { return &v }

func allRatedAt(v float64) []SectionRatings {
	return []SectionRatings{
		{SectionID: "sec-quality", Ratings: []CriterionRating{
			{CriterionID: "crit-accuracy", Rating: rate(v)},
			{CriterionID: "crit-thoroughness", Rating: rate(v)},
		}},
		{SectionID: "sec-teamwork", Ratings: []CriterionRating{
			{CriterionID: "crit-collaboration", Rating: rate(v)},
			{CriterionID: "crit-communication", Rating: rate(v)},
		}},
	}
}

func TestPerfectRatingsScoreHundred(t *testing.T) {
	breakdown, err := ComputeScore(twoSectionTemplate(), allRatedAt(5))
	require.NoError(t, err)

	assert.InDelta(t, 100, breakdown.FinalRating, 1e-9)
	assert.Equal(t, CategoryExceptional, breakdown.Category)
	require.Len(t, breakdown.Sections, 2)
	assert.InDelta(t, 100, breakdown.Sections[0].Score, 1e-9)
	assert.InDelta(t, 100, breakdown.Sections[1].Score, 1e-9)
}

func TestUnratedSectionScoresZero(t *testing.T) {
	// Only the 60%-weighted section is rated, at maximum. The untouched
	// section contributes zero, so the final rating drops below 100 even
	// though every rated criterion scored full marks.
	submitted := []SectionRatings{
		{SectionID: "sec-quality", Ratings: []CriterionRating{
			{CriterionID: "crit-accuracy", Rating: rate(5)},
			{CriterionID: "crit-thoroughness", Rating: rate(5)},
		}},
	}

	breakdown, err := ComputeScore(twoSectionTemplate(), submitted)
	require.NoError(t, err)

	assert.InDelta(t, 60, breakdown.FinalRating, 1e-9)
	assert.Equal(t, CategoryMeetsExpectations, breakdown.Category)

	byID := map[string]SectionScore{}
	for _, section := range breakdown.Sections {
		byID[section.SectionID] = section
	}
	assert.InDelta(t, 100, byID["sec-quality"].Score, 1e-9)
	assert.Zero(t, byID["sec-teamwork"].Score)
	assert.Empty(t, byID["sec-teamwork"].Criteria)
}

func TestUnratedCriterionIsSkippedNotZero(t *testing.T) {
	// One criterion in the quality section is left unrated; the section
	// normalizes over the remaining weight instead of averaging in a zero.
	submitted := []SectionRatings{
		{SectionID: "sec-quality", Ratings: []CriterionRating{
			{CriterionID: "crit-accuracy", Rating: rate(5)},
			{CriterionID: "crit-thoroughness"},
		}},
		{SectionID: "sec-teamwork", Ratings: []CriterionRating{
			{CriterionID: "crit-collaboration", Rating: rate(5)},
			{CriterionID: "crit-communication", Rating: rate(5)},
		}},
	}

	breakdown, err := ComputeScore(twoSectionTemplate(), submitted)
	require.NoError(t, err)
	assert.InDelta(t, 100, breakdown.FinalRating, 1e-9)
}

func TestMixedRatings(t *testing.T) {
	submitted := []SectionRatings{
		{SectionID: "sec-quality", Ratings: []CriterionRating{
			{CriterionID: "crit-accuracy", Rating: rate(4)},
			{CriterionID: "crit-thoroughness", Rating: rate(3)},
		}},
		{SectionID: "sec-teamwork", Ratings: []CriterionRating{
			{CriterionID: "crit-collaboration", Rating: rate(5)},
			{CriterionID: "crit-communication", Rating: rate(2)},
		}},
	}

	breakdown, err := ComputeScore(twoSectionTemplate(), submitted)
	require.NoError(t, err)

	// Quality: (80*0.5 + 60*0.5) = 70. Teamwork: (100*0.5 + 40*0.5) = 70.
	assert.InDelta(t, 70, breakdown.FinalRating, 1e-9)
	assert.Equal(t, CategoryMeetsExpectations, breakdown.Category)
}

func TestFinalRatingStaysInRange(t *testing.T) {
	for _, v := range []float64{1, 2, 3, 4, 5} {
		breakdown, err := ComputeScore(twoSectionTemplate(), allRatedAt(v))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, breakdown.FinalRating, 0.0)
		assert.LessOrEqual(t, breakdown.FinalRating, 100.0)
	}

	breakdown, err := ComputeScore(twoSectionTemplate(), nil)
	require.NoError(t, err)
	assert.Zero(t, breakdown.FinalRating)
	assert.Equal(t, CategoryUnsatisfactory, breakdown.Category)
}

func TestRejectsOutOfScaleRating(t *testing.T) {
	submitted := []SectionRatings{
		{SectionID: "sec-quality", Ratings: []CriterionRating{
			{CriterionID: "crit-accuracy", Rating: rate(6)},
		}},
	}

	_, err := ComputeScore(twoSectionTemplate(), submitted)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Contains(t, verr.Issues[0].Reason, "outside the scale")
}

func TestRejectsUnknownSectionAndCriterion(t *testing.T) {
	submitted := []SectionRatings{
		{SectionID: "sec-bogus", Ratings: []CriterionRating{{CriterionID: "crit-accuracy", Rating: rate(3)}}},
		{SectionID: "sec-quality", Ratings: []CriterionRating{{CriterionID: "crit-bogus", Rating: rate(3)}}},
	}

	_, err := ComputeScore(twoSectionTemplate(), submitted)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 2)
}

func TestCategoryThresholds(t *testing.T) {
	cases := []struct {
		rating float64
		want   Category
	}{
		{100, CategoryExceptional},
		{90, CategoryExceptional},
		{89.99, CategoryExceedsExpectations},
		{75, CategoryExceedsExpectations},
		{60, CategoryMeetsExpectations},
		{40, CategoryNeedsImprovement},
		{39.99, CategoryUnsatisfactory},
		{0, CategoryUnsatisfactory},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryFor(tc.rating), "rating %.2f", tc.rating)
	}
}
