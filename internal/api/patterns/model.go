package patterns

import (
	"encoding/json"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
)

// patternResponse is the wire representation of a detection rule.
type patternResponse struct {
	RuleID   string `json:"rule_id"`
	Label    string `json:"label"`
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Enabled  bool   `json:"enabled"`
}

// patternListResponse wraps the full ruleset.
type patternListResponse struct {
	Patterns []patternResponse `json:"patterns"`
	Total    int               `json:"total"`
}

// Encode implements the web.Encoder interface.
func (plr patternListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(plr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toPatternListResponse(ruleList []rules.Rule) patternListResponse {
	patterns := make([]patternResponse, 0, len(ruleList))
	for _, r := range ruleList {
		patterns = append(patterns, patternResponse{
			RuleID:   r.RuleID,
			Label:    r.Label,
			Pattern:  r.Pattern,
			Severity: r.Severity,
			Category: r.Category,
			Source:   r.Source,
			Enabled:  r.Enabled,
		})
	}
	return patternListResponse{Patterns: patterns, Total: len(patterns)}
}

// importResponse reports how many patterns an upload added or updated.
type importResponse struct {
	Imported int `json:"imported"`
}

// Encode implements the web.Encoder interface.
func (ir importResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(ir)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}
