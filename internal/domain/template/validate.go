package template

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var weightTolerance = decimal.NewFromFloat(0.01)
var fullWeight = decimal.NewFromInt(100)

// sumsToHundred checks a weight sum against 100 with the ±0.01 tolerance.
// Decimal arithmetic keeps repeated float additions (33.33 + 33.33 + 33.34)
// from drifting past the tolerance.
func sumsToHundred(weights []float64) bool {
	sum := decimal.Zero
	for _, weight := range weights {
		sum = sum.Add(decimal.NewFromFloat(weight))
	}
	return sum.Sub(fullWeight).Abs().LessThanOrEqual(weightTolerance)
}

// Validate checks structure, enums, the rating scale, and the weight
// invariants: section weights sum to 100 and every section's criterion
// weights sum to 100.
func Validate(input CreateInput) error {
	verr := &ValidationError{}

	if strings.TrimSpace(input.Code) == "" {
		verr.Issues = append(verr.Issues, Issue{Field: "code", Reason: "is required"})
	}
	if strings.TrimSpace(input.Name) == "" {
		verr.Issues = append(verr.Issues, Issue{Field: "name", Reason: "is required"})
	}
	if !KnownKind(input.Kind) {
		verr.Issues = append(verr.Issues, Issue{Field: "kind", Reason: "must be one of " + strings.Join(Kinds, ", ")})
	}
	if !KnownScaleType(input.RatingScale.Type) {
		verr.Issues = append(verr.Issues, Issue{Field: "ratingScale.type", Reason: "must be one of " + strings.Join(ScaleTypes, ", ")})
	}
	if input.RatingScale.MaxValue <= input.RatingScale.MinValue {
		verr.Issues = append(verr.Issues, Issue{Field: "ratingScale", Reason: "maxValue must be greater than minValue"})
	}
	if input.DisputeWindowDays < 0 {
		verr.Issues = append(verr.Issues, Issue{Field: "disputeWindowDays", Reason: "must not be negative"})
	}

	if len(input.Sections) == 0 {
		verr.Issues = append(verr.Issues, Issue{Field: "sections", Reason: "at least one section is required"})
		return verr
	}

	sectionWeights := make([]float64, 0, len(input.Sections))
	seenSections := make(map[string]bool, len(input.Sections))
	for i, section := range input.Sections {
		field := fmt.Sprintf("sections[%d]", i)
		if strings.TrimSpace(section.ID) == "" {
			verr.Issues = append(verr.Issues, Issue{Field: field + ".id", Reason: "is required"})
		} else if seenSections[section.ID] {
			verr.Issues = append(verr.Issues, Issue{Field: field + ".id", Reason: "duplicates another section id"})
		}
		seenSections[section.ID] = true
		sectionWeights = append(sectionWeights, section.Weight)

		if len(section.Criteria) == 0 {
			verr.Issues = append(verr.Issues, Issue{Field: field + ".criteria", Reason: "at least one criterion is required"})
			continue
		}

		criterionWeights := make([]float64, 0, len(section.Criteria))
		seenCriteria := make(map[string]bool, len(section.Criteria))
		for j, criterion := range section.Criteria {
			criterionField := fmt.Sprintf("%s.criteria[%d]", field, j)
			if strings.TrimSpace(criterion.ID) == "" {
				verr.Issues = append(verr.Issues, Issue{Field: criterionField + ".id", Reason: "is required"})
			} else if seenCriteria[criterion.ID] {
				verr.Issues = append(verr.Issues, Issue{Field: criterionField + ".id", Reason: "duplicates another criterion id"})
			}
			seenCriteria[criterion.ID] = true
			criterionWeights = append(criterionWeights, criterion.Weight)
		}
		if !sumsToHundred(criterionWeights) {
			verr.Issues = append(verr.Issues, Issue{Field: field + ".criteria", Reason: "criterion weights must sum to 100"})
		}
	}

	if !sumsToHundred(sectionWeights) {
		verr.Issues = append(verr.Issues, Issue{Field: "sections", Reason: "section weights must sum to 100"})
	}

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}
