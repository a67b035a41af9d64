package scanning

// Risk score bounds and adjustment constants used by the fusion engine.
const (
	RiskScoreFloor   = 10
	RiskScoreCeiling = 100

	// MLUpliftCap bounds how far the classifier may raise a rule-based
	// score. final = max(rule, min(rule+MLUpliftCap, ml)).
	MLUpliftCap = 20

	// GenericUnconfirmedCap caps the rule-based score for generic findings
	// that were not validated as real secrets.
	GenericUnconfirmedCap = 40

	// ClassifierFallbackScore is assigned when the classifier cannot be
	// trained or loaded.
	ClassifierFallbackScore = 50
)

// FeatureImportance names one classifier feature and its learned weight.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// MLAnalysis is the classifier's contribution to a finding's assessment.
type MLAnalysis struct {
	PredictedSeverity RiskSeverity        `json:"predicted_severity"`
	ConfidenceScore   int                 `json:"confidence_score"`
	TopFeatures       []FeatureImportance `json:"top_features,omitempty"`
	Fallback          bool                `json:"fallback,omitempty"`
}

// RiskAssessment is the fused per-finding risk verdict. Factors preserve
// the order the scoring rules fired in.
type RiskAssessment struct {
	RuleScore  int          `json:"rule_score"`
	MLScore    int          `json:"ml_score"`
	FinalScore int          `json:"final_score"`
	Severity   RiskSeverity `json:"severity"`
	Factors    []string     `json:"factors"`
	ML         *MLAnalysis  `json:"ml_analysis,omitempty"`
}

// ClampRiskScore bounds a score to the persisted range.
func ClampRiskScore(score int) int {
	if score < RiskScoreFloor {
		return RiskScoreFloor
	}
	if score > RiskScoreCeiling {
		return RiskScoreCeiling
	}
	return score
}

// FuseScores combines the rule-based and classifier scores. The classifier
// can only raise a score, and by at most MLUpliftCap points.
func FuseScores(ruleScore, mlScore int) int {
	uplifted := ruleScore + MLUpliftCap
	if mlScore < uplifted {
		uplifted = mlScore
	}
	if uplifted < ruleScore {
		uplifted = ruleScore
	}
	return ClampRiskScore(uplifted)
}

// RiskSummary aggregates a task's findings by fused severity.
type RiskSummary struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Add counts one finding under its severity bucket.
func (s *RiskSummary) Add(sev RiskSeverity) {
	s.Total++
	switch sev {
	case RiskSeverityHigh:
		s.High++
	case RiskSeverityMedium:
		s.Medium++
	default:
		s.Low++
	}
}
