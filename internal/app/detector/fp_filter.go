package detector

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"
)

// minMatchLen drops matches too short to be real secrets.
const minMatchLen = 8

// urlAssignmentIdioms mark a match as a DOM/URL assignment rather than a
// leaked value. Checked only for URL-flavored rules.
var urlAssignmentIdioms = []string{
	".src=",
	`src="`,
	"src='",
	".href=",
	`href="`,
	"href='",
	"iframe.src",
	"window.location",
	"location.href",
	"ajax(",
	"axios(",
	"fetch(",
}

// domIndicators mark generic DOM manipulation contexts, applied to every
// rule.
var domIndicators = []string{
	"new_script.src",
	"script.src",
	"link.href",
	"img.src",
	"iframe.src",
	"window.location",
	"document.getelementsby",
	".appendchild",
	"addeventlistener",
}

// placeholderPatterns match well-known example and template values.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)example\.com`),
	regexp.MustCompile(`(?i)test\.com`),
	regexp.MustCompile(`(?i)localhost`),
	regexp.MustCompile(`(?i)127\.0\.0\.1`),
	regexp.MustCompile(`(?i)YOUR_API_KEY`),
	regexp.MustCompile(`(?i)INSERT_.*_HERE`),
	regexp.MustCompile(`(?i)REPLACE_ME`),
	regexp.MustCompile(`(?i)TODO`),
	regexp.MustCompile(`(?i)xxx+`),
}

// isFalsePositive reports whether a match should be discarded as noise
// rather than recorded as a finding.
func isFalsePositive(match, snippet, ruleID, category string) bool {
	if match == "" {
		return true
	}

	snippetLower := strings.ToLower(snippet)
	ruleLower := strings.ToLower(ruleID)

	if strings.Contains(ruleLower, "url") || strings.Contains(ruleLower, "http") {
		for _, idiom := range urlAssignmentIdioms {
			if strings.Contains(snippetLower, idiom) {
				return true
			}
		}
	}

	if strings.Contains(ruleLower, "file") || category == "info" {
		if strings.HasPrefix(match, "/node_modules") {
			return true
		}
	}

	for _, indicator := range domIndicators {
		if strings.Contains(snippetLower, indicator) {
			return true
		}
	}

	if len(strings.TrimSpace(match)) < minMatchLen {
		return true
	}

	for _, pattern := range placeholderPatterns {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}
