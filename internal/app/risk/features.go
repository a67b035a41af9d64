package risk

import (
	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// NumFeatures is the width of the classifier's input vector.
const NumFeatures = 8

// featureNames index the vector positions for explainability output.
var featureNames = [NumFeatures]string{
	"is_valid",
	"is_plausible",
	"category_score",
	"entropy",
	"length",
	"is_public",
	"is_admin",
	"has_domain",
}

// Feature vector positions.
const (
	featIsValid = iota
	featIsPlausible
	featCategoryScore
	featEntropy
	featLength
	featIsPublic
	featIsAdmin
	featHasDomain
)

const (
	// defaultEntropy stands in when validation recorded no entropy.
	defaultEntropy = 3.0
	// maxFeatureLength caps the excerpt length feature to avoid skew.
	maxFeatureLength = 100
)

// Category tiers as the classifier sees them.
const (
	categoryTierGeneric  = 0
	categoryTierHigh     = 1
	categoryTierCritical = 2
)

// extractFeatures converts a finding's validation and OSINT state into the
// numeric vector the classifier consumes. The analyzer never marks a
// candidate both valid and plausible, and the synthetic trainer mirrors
// that by drawing the plausible flag only for invalid samples.
func extractFeatures(f *scanning.Finding) [NumFeatures]float64 {
	var v [NumFeatures]float64

	switch f.ValidationLabelOrEmpty() {
	case scanning.ValidationLabelValid:
		v[featIsValid] = 1
	case scanning.ValidationLabelLikely:
		v[featIsPlausible] = 1
	}

	v[featCategoryScore] = float64(categoryTier(f.Category()))

	v[featEntropy] = defaultEntropy
	if val := f.Validation(); val != nil {
		if e, ok := val.Metadata["entropy"].(float64); ok {
			v[featEntropy] = e
		}
	}

	length := len(f.Context())
	if length > maxFeatureLength {
		length = maxFeatureLength
	}
	v[featLength] = float64(length)

	if osint := f.Osint(); osint != nil {
		if osint.HasLabel(scanning.OsintLabelPubliclyExposedArtifact) {
			v[featIsPublic] = 1
		}
		if osint.HasLabel(scanning.OsintLabelExposedAdminPath) {
			v[featIsAdmin] = 1
		}
		if osint.HasLabel(scanning.OsintLabelHighRiskDomainContext) {
			v[featHasDomain] = 1
		}
	}
	return v
}

func categoryTier(category string) int {
	switch {
	case rules.IsCriticalCategory(category):
		return categoryTierCritical
	case rules.IsHighValueCategory(category):
		return categoryTierHigh
	default:
		return categoryTierGeneric
	}
}
