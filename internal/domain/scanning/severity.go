package scanning

// RuleSeverity is the severity a detection rule assigns to its matches.
type RuleSeverity string

const (
	RuleSeverityLow      RuleSeverity = "low"
	RuleSeverityMedium   RuleSeverity = "medium"
	RuleSeverityHigh     RuleSeverity = "high"
	RuleSeverityCritical RuleSeverity = "critical"
)

// String returns the string representation of the RuleSeverity.
func (s RuleSeverity) String() string { return string(s) }

// RiskSeverity is the qualitative level of a fused risk score.
type RiskSeverity string

const (
	RiskSeverityLow    RiskSeverity = "Low"
	RiskSeverityMedium RiskSeverity = "Medium"
	RiskSeverityHigh   RiskSeverity = "High"
)

// String returns the string representation of the RiskSeverity.
func (s RiskSeverity) String() string { return string(s) }

// Risk score thresholds shared by the rule component and the fusion step.
// The final severity is always re-derived from the final score with these,
// never from label voting.
const (
	RiskScoreHighThreshold   = 80
	RiskScoreMediumThreshold = 40
)

// SeverityForScore maps a 0-100 risk score to its qualitative severity.
func SeverityForScore(score int) RiskSeverity {
	switch {
	case score >= RiskScoreHighThreshold:
		return RiskSeverityHigh
	case score >= RiskScoreMediumThreshold:
		return RiskSeverityMedium
	default:
		return RiskSeverityLow
	}
}
