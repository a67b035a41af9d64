package rules

import "strings"

// Secret categories used across validation and risk scoring. Critical
// categories identify infrastructure credentials; high-value categories cover
// access tokens and keys.
const (
	CategoryAWS        = "AWS"
	CategoryGCP        = "GCP"
	CategoryAzure      = "AZURE"
	CategorySlack      = "SLACK"
	CategoryStripe     = "STRIPE"
	CategoryPrivateKey = "PRIVATEKEY"
	CategoryAPIKey     = "API_KEY"
	CategoryJWT        = "JWT"
	CategoryDatabase   = "DATABASE"
	CategoryAccessKey  = "ACCESS_KEY"
	CategorySecret     = "SECRET"
	CategoryOAuth      = "OAUTH"
	CategoryAuth       = "AUTH"
	CategoryCreds      = "CREDENTIALS"
	CategoryEmail      = "EMAIL"
	CategoryGeneric    = "GENERIC"
	CategoryAST        = "ast"
)

// categoryKeywords maps rule identifier substrings to categories, checked in
// order so provider-specific categories win over generic ones.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"aws", CategoryAWS},
	{"gcp", CategoryGCP},
	{"google", CategoryGCP},
	{"azure", CategoryAzure},
	{"slack", CategorySlack},
	{"stripe", CategoryStripe},
	{"private-key", CategoryPrivateKey},
	{"private_key", CategoryPrivateKey},
	{"privatekey", CategoryPrivateKey},
	{"pem", CategoryPrivateKey},
	{"jwt", CategoryJWT},
	{"oauth", CategoryOAuth},
	{"database", CategoryDatabase},
	{"postgres", CategoryDatabase},
	{"mysql", CategoryDatabase},
	{"mongo", CategoryDatabase},
	{"redis", CategoryDatabase},
	{"access-key", CategoryAccessKey},
	{"access_key", CategoryAccessKey},
	{"access-token", CategoryAccessKey},
	{"api-key", CategoryAPIKey},
	{"api_key", CategoryAPIKey},
	{"apikey", CategoryAPIKey},
	{"secret", CategorySecret},
	{"token", CategoryAPIKey},
	{"email", CategoryEmail},
}

// CategoryForRuleID derives a secret category from a rule identifier.
func CategoryForRuleID(ruleID string) string {
	id := strings.ToLower(ruleID)
	for _, ck := range categoryKeywords {
		if strings.Contains(id, ck.keyword) {
			return ck.category
		}
	}
	return CategoryGeneric
}

// criticalCategories are infrastructure-credential categories.
var criticalCategories = map[string]struct{}{
	CategoryAWS:        {},
	CategoryGCP:        {},
	CategoryAzure:      {},
	CategorySlack:      {},
	CategoryStripe:     {},
	CategoryPrivateKey: {},
	CategoryCreds:      {},
}

// highValueCategories cover access tokens, keys and secrets.
var highValueCategories = map[string]struct{}{
	CategoryAPIKey:    {},
	CategoryJWT:       {},
	CategoryDatabase:  {},
	CategoryAccessKey: {},
	CategorySecret:    {},
	CategoryOAuth:     {},
	CategoryAuth:      {},
}

// IsCriticalCategory reports whether the category is an infrastructure
// credential category.
func IsCriticalCategory(category string) bool {
	_, ok := criticalCategories[strings.ToUpper(category)]
	return ok
}

// IsHighValueCategory reports whether the category is a high-value token or
// key category.
func IsHighValueCategory(category string) bool {
	_, ok := highValueCategories[strings.ToUpper(category)]
	return ok
}

// SeverityForCategory assigns a rule severity from a category's tier.
func SeverityForCategory(category string) string {
	switch {
	case IsCriticalCategory(category):
		return "critical"
	case IsHighValueCategory(category):
		return "high"
	default:
		return "medium"
	}
}

// MinSecretLength returns the shortest plausible secret length for a declared
// type. Candidates below the minimum are structurally invalid.
func MinSecretLength(declaredType string) int {
	switch strings.ToLower(declaredType) {
	case "jwt":
		return 32
	case "api_key":
		return 16
	case "oauth":
		return 20
	case "private_key":
		return 64
	default:
		return 10
	}
}
