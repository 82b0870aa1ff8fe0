package evaluation

import (
	"fmt"

	"appraisal/internal/domain/template"
)

// ComputeScore applies the weighted scoring algorithm to a set of submitted
// ratings. Criteria left unrated are skipped, not treated as zero; a section
// whose criteria are all unrated scores zero. The result is always a 0-100
// percentage regardless of the template's rating scale.
func ComputeScore(tmpl template.Template, submitted []SectionRatings) (ScoreBreakdown, error) {
	if err := validateRatings(tmpl, submitted); err != nil {
		return ScoreBreakdown{}, err
	}

	ratings := indexRatings(submitted)

	var breakdown ScoreBreakdown
	var totalWeightedScore, totalWeight float64
	for _, section := range tmpl.Sections {
		sectionScore := SectionScore{
			SectionID: section.ID,
			Title:     section.Title,
			Weight:    section.Weight,
		}

		var weightedSum, weightSum float64
		for _, criterion := range section.Criteria {
			rating, ok := ratings[section.ID][criterion.ID]
			if !ok {
				continue
			}
			criterionScore := rating / tmpl.RatingScale.MaxValue * 100
			weightedSum += criterionScore * (criterion.Weight / 100)
			weightSum += criterion.Weight
			sectionScore.Criteria = append(sectionScore.Criteria, CriterionScore{
				CriterionID: criterion.ID,
				Name:        criterion.Name,
				Weight:      criterion.Weight,
				Rating:      rating,
				Score:       criterionScore,
			})
		}

		if weightSum > 0 {
			sectionScore.Score = weightedSum / weightSum * 100
		}
		totalWeightedScore += sectionScore.Score * (section.Weight / 100)
		totalWeight += section.Weight
		breakdown.Sections = append(breakdown.Sections, sectionScore)
	}

	if totalWeight > 0 {
		breakdown.FinalRating = totalWeightedScore / totalWeight * 100
	}
	breakdown.Category = CategoryFor(breakdown.FinalRating)
	return breakdown, nil
}

func validateRatings(tmpl template.Template, submitted []SectionRatings) error {
	sections := make(map[string]map[string]bool, len(tmpl.Sections))
	for _, section := range tmpl.Sections {
		criteria := make(map[string]bool, len(section.Criteria))
		for _, criterion := range section.Criteria {
			criteria[criterion.ID] = true
		}
		sections[section.ID] = criteria
	}

	var issues []Issue
	for _, sub := range submitted {
		criteria, ok := sections[sub.SectionID]
		if !ok {
			issues = append(issues, Issue{
				Field:  "sections." + sub.SectionID,
				Reason: "section is not part of the template",
			})
			continue
		}
		for _, rating := range sub.Ratings {
			if !criteria[rating.CriterionID] {
				issues = append(issues, Issue{
					Field:  "sections." + sub.SectionID + "." + rating.CriterionID,
					Reason: "criterion is not part of the section",
				})
				continue
			}
			if rating.Rating == nil {
				continue
			}
			if *rating.Rating < tmpl.RatingScale.MinValue || *rating.Rating > tmpl.RatingScale.MaxValue {
				issues = append(issues, Issue{
					Field: "sections." + sub.SectionID + "." + rating.CriterionID,
					Reason: fmt.Sprintf("rating %.2f is outside the scale [%.2f, %.2f]",
						*rating.Rating, tmpl.RatingScale.MinValue, tmpl.RatingScale.MaxValue),
				})
			}
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func indexRatings(submitted []SectionRatings) map[string]map[string]float64 {
	index := make(map[string]map[string]float64, len(submitted))
	for _, section := range submitted {
		bySection, ok := index[section.SectionID]
		if !ok {
			bySection = make(map[string]float64, len(section.Ratings))
			index[section.SectionID] = bySection
		}
		for _, rating := range section.Ratings {
			if rating.Rating != nil {
				bySection[rating.CriterionID] = *rating.Rating
			}
		}
	}
	return index
}
