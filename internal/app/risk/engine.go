// Package risk fuses rule-based scoring with a lightweight classifier into
// a single 0-100 risk verdict per finding. The rule score is authoritative;
// the classifier may only raise it within a fixed uplift cap.
package risk

import (
	"fmt"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

const topFeatureCount = 3

// Engine fuses rule-based scores with the classifier's prediction. A nil
// classifier degrades to a fixed medium verdict rather than failing the
// stage.
type Engine struct {
	classifier *Classifier
}

func NewEngine(classifier *Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// Assess computes the fused risk verdict for one finding. The classifier
// can only raise the rule score, never lower it, and the final severity is
// re-derived from the fused score.
func (e *Engine) Assess(f *scanning.Finding) scanning.RiskAssessment {
	ruleScore, _, factors := calculateBaseScore(f)

	if e.classifier == nil {
		return scanning.RiskAssessment{
			RuleScore:  ruleScore,
			FinalScore: scanning.ClassifierFallbackScore,
			Severity:   scanning.RiskSeverityMedium,
			Factors:    append(factors, "Classifier unavailable, defaulted to medium risk"),
			ML: &scanning.MLAnalysis{
				PredictedSeverity: scanning.RiskSeverityMedium,
				ConfidenceScore:   scanning.ClassifierFallbackScore,
				Fallback:          true,
			},
		}
	}

	pred := e.classifier.Predict(extractFeatures(f))
	finalScore := scanning.FuseScores(ruleScore, pred.Score)
	if finalScore > ruleScore {
		factors = append(factors, fmt.Sprintf("ML uplift applied (+%d)", finalScore-ruleScore))
	}

	return scanning.RiskAssessment{
		RuleScore:  ruleScore,
		MLScore:    pred.Score,
		FinalScore: finalScore,
		Severity:   scanning.SeverityForScore(finalScore),
		Factors:    factors,
		ML: &scanning.MLAnalysis{
			PredictedSeverity: pred.Severity,
			ConfidenceScore:   pred.Score,
			TopFeatures:       e.classifier.TopFeatures(topFeatureCount),
		},
	}
}
