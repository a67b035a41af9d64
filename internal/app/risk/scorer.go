package risk

import (
	"fmt"
	"strings"

	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// Rule-based score contributions.
const (
	validityConfirmedBonus = 60
	validityPlausibleBonus = 30

	categoryCriticalBonus = 25
	categoryHighBonus     = 15
	categoryBaseBonus     = 5

	osintPublicBonus     = 10
	osintAdminBonus      = 10
	osintHighRiskDomains = 5
)

// calculateBaseScore computes the deterministic rule-based risk score for a
// finding, with one human-readable factor per contributing rule.
func calculateBaseScore(f *scanning.Finding) (score int, severity scanning.RiskSeverity, factors []string) {
	validity := f.ValidationLabelOrEmpty()

	switch validity {
	case scanning.ValidationLabelValid:
		score += validityConfirmedBonus
		factors = append(factors, "Secret is confirmed ACTIVE/VALID")
	case scanning.ValidationLabelLikely:
		score += validityPlausibleBonus
		factors = append(factors, "Secret structure is PLAUSIBLE")
	}

	category := f.Category()
	switch categoryTier(category) {
	case categoryTierCritical:
		score += categoryCriticalBonus
		factors = append(factors, fmt.Sprintf("Critical secret type: %s", category))
	case categoryTierHigh:
		score += categoryHighBonus
		factors = append(factors, fmt.Sprintf("High-value secret type: %s", category))
	default:
		score += categoryBaseBonus
	}

	if osint := f.Osint(); osint != nil {
		if osint.HasLabel(scanning.OsintLabelPubliclyExposedArtifact) {
			score += osintPublicBonus
			factors = append(factors, "Found in public JS file (external exposure)")
		}
		if osint.HasLabel(scanning.OsintLabelExposedAdminPath) {
			score += osintAdminBonus
			factors = append(factors, "Found in admin/config path")
		}
		if osint.HasLabel(scanning.OsintLabelHighRiskDomainContext) {
			score += osintHighRiskDomains
			factors = append(factors, "Associated with high-risk domain")
		}
	}

	// Unvalidated generic findings cap at Medium.
	if strings.Contains(strings.ToLower(category), strings.ToLower(rules.CategoryGeneric)) &&
		validity != scanning.ValidationLabelValid {
		if score > scanning.GenericUnconfirmedCap {
			score = scanning.GenericUnconfirmedCap
		}
	}

	score = scanning.ClampRiskScore(score)
	return score, scanning.SeverityForScore(score), factors
}
