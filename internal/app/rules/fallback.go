package rules

import (
	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
)

// fallbackSource marks rules that ship with the binary rather than the store.
const fallbackSource = "fallback"

// FallbackRules returns the three fixed rules that guarantee baseline
// detection when the pattern store is empty or unreachable.
func FallbackRules() []domain.Rule {
	return []domain.Rule{
		{
			RuleID:   "fallback-bearer-token",
			Label:    "Authorization: Bearer token",
			Pattern:  `[Bb]earer\s+[A-Za-z0-9\-\._+/=]{10,}`,
			Severity: "high",
			Category: "auth",
			Source:   fallbackSource,
			Enabled:  true,
		},
		{
			RuleID:   "fallback-basic-auth",
			Label:    "Authorization: Basic credentials",
			Pattern:  `[Bb]asic\s+[A-Za-z0-9+/=]{10,}`,
			Severity: "high",
			Category: "auth",
			Source:   fallbackSource,
			Enabled:  true,
		},
		{
			RuleID:   "fallback-private-key",
			Label:    "PEM private key header",
			Pattern:  `-----BEGIN [A-Z ]*PRIVATE KEY-----`,
			Severity: "critical",
			Category: "credentials",
			Source:   fallbackSource,
			Enabled:  true,
		},
	}
}
