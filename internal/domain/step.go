package domain

type Step string

const (
	StepPackageType          Step = "package-type"
	StepBasicInfo            Step = "basic-info"
	StepLocationTiming       Step = "location-timing"
	StepDetailedPlanning     Step = "detailed-planning"
	StepInclusionsExclusions Step = "inclusions-exclusions"
	StepPricingPolicies      Step = "pricing-policies"
	StepReview               Step = "review"
)

var allSteps = []Step{
	StepPackageType,
	StepBasicInfo,
	StepLocationTiming,
	StepDetailedPlanning,
	StepInclusionsExclusions,
	StepPricingPolicies,
	StepReview,
}

var stepTitles = map[Step]string{
	StepPackageType:          "Package Type",
	StepBasicInfo:            "Basic Information",
	StepLocationTiming:       "Location & Timing",
	StepDetailedPlanning:     "Detailed Planning",
	StepInclusionsExclusions: "Inclusions & Exclusions",
	StepPricingPolicies:      "Pricing & Policies",
	StepReview:               "Review & Publish",
}

func (s Step) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return string(s)
}

func (s Step) Valid() bool {
	_, ok := stepTitles[s]
	return ok
}

// StepSequence returns the ordered steps available for a draft. Until a
// recognized package type is chosen only the type selection step exists.
func StepSequence(typeChosen bool) []Step {
	if !typeChosen {
		return []Step{StepPackageType}
	}
	out := make([]Step, len(allSteps))
	copy(out, allSteps)
	return out
}

// IndexOf returns the position of s in seq, or -1.
func IndexOf(seq []Step, s Step) int {
	for i, v := range seq {
		if v == s {
			return i
		}
	}
	return -1
}
