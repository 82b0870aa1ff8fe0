package template

const (
	KindAnnual       = "ANNUAL"
	KindProbationary = "PROBATIONARY"
	KindMidYear      = "MID_YEAR"
	KindProjectBased = "PROJECT_BASED"
	KindAdHoc        = "AD_HOC"

	ScaleNumeric     = "numeric"
	ScaleLetter      = "letter"
	ScaleDescriptive = "descriptive"

	CalcWeightedAverage = "weighted_average"
)

var Kinds = []string{KindAnnual, KindProbationary, KindMidYear, KindProjectBased, KindAdHoc}

var ScaleTypes = []string{ScaleNumeric, ScaleLetter, ScaleDescriptive}

func KnownKind(kind string) bool {
	for _, candidate := range Kinds {
		if candidate == kind {
			return true
		}
	}
	return false
}

func KnownScaleType(scaleType string) bool {
	for _, candidate := range ScaleTypes {
		if candidate == scaleType {
			return true
		}
	}
	return false
}
