package scanning

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// DetectionMethod records which detector pass produced a finding.
type DetectionMethod string

const (
	// DetectionMethodRegex marks findings produced by the compiled rule
	// patterns applied to raw asset content.
	DetectionMethodRegex DetectionMethod = "regex"
	// DetectionMethodAST marks findings produced by the JavaScript literal
	// analysis pass.
	DetectionMethodAST DetectionMethod = "ast"
)

// MaxContextSnippetLen bounds the stored context snippet around a match.
const MaxContextSnippetLen = 300

// Finding is a detected secret occurrence within an asset, enriched in place
// by the validation, correlation and risk stages. Re-running a downstream
// stage overwrites that stage's fields wholesale.
type Finding struct {
	id           uuid.UUID
	taskID       uuid.UUID
	assetID      uuid.UUID
	ruleID       string
	ruleLabel    string
	category     string
	ruleSeverity RuleSeverity
	method       DetectionMethod
	match        string
	context      string
	sourcePath   string

	validation *ValidationResult
	osint      *OsintContext
	risk       *RiskAssessment

	createdAt time.Time
	updatedAt time.Time
}

// NewFinding creates a detection-stage finding prior to enrichment.
func NewFinding(
	taskID, assetID uuid.UUID,
	ruleID, ruleLabel, category string,
	severity RuleSeverity,
	method DetectionMethod,
	match, context, sourcePath string,
) *Finding {
	now := time.Now()
	return &Finding{
		id:           uuid.New(),
		taskID:       taskID,
		assetID:      assetID,
		ruleID:       ruleID,
		ruleLabel:    ruleLabel,
		category:     category,
		ruleSeverity: severity,
		method:       method,
		match:        match,
		context:      truncateContext(context),
		sourcePath:   sourcePath,
		createdAt:    now,
		updatedAt:    now,
	}
}

// ReconstructFinding rebuilds a Finding from persistent storage.
func ReconstructFinding(
	id, taskID, assetID uuid.UUID,
	ruleID, ruleLabel, category string,
	severity RuleSeverity,
	method DetectionMethod,
	match, context, sourcePath string,
	validation *ValidationResult,
	osint *OsintContext,
	risk *RiskAssessment,
	createdAt, updatedAt time.Time,
) *Finding {
	return &Finding{
		id:           id,
		taskID:       taskID,
		assetID:      assetID,
		ruleID:       ruleID,
		ruleLabel:    ruleLabel,
		category:     category,
		ruleSeverity: severity,
		method:       method,
		match:        match,
		context:      context,
		sourcePath:   sourcePath,
		validation:   validation,
		osint:        osint,
		risk:         risk,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func truncateContext(s string) string {
	if len(s) > MaxContextSnippetLen {
		return s[:MaxContextSnippetLen] + "..."
	}
	return s
}

// Getters.
func (f *Finding) ID() uuid.UUID              { return f.id }
func (f *Finding) TaskID() uuid.UUID          { return f.taskID }
func (f *Finding) AssetID() uuid.UUID         { return f.assetID }
func (f *Finding) RuleID() string             { return f.ruleID }
func (f *Finding) RuleLabel() string          { return f.ruleLabel }
func (f *Finding) Category() string           { return f.category }
func (f *Finding) RuleSeverity() RuleSeverity { return f.ruleSeverity }
func (f *Finding) Method() DetectionMethod    { return f.method }
func (f *Finding) Match() string              { return f.match }
func (f *Finding) Context() string            { return f.context }
func (f *Finding) SourcePath() string         { return f.sourcePath }

func (f *Finding) Validation() *ValidationResult { return f.validation }
func (f *Finding) Osint() *OsintContext          { return f.osint }
func (f *Finding) Risk() *RiskAssessment         { return f.risk }

func (f *Finding) CreatedAt() time.Time { return f.createdAt }
func (f *Finding) UpdatedAt() time.Time { return f.updatedAt }

// DedupeKey identifies a finding occurrence within a task. Two matches with
// the same rule, matched value and source asset are the same finding.
func (f *Finding) DedupeKey() string {
	h := sha256.New()
	h.Write([]byte(f.ruleID))
	h.Write([]byte{0})
	h.Write([]byte(f.match))
	h.Write([]byte{0})
	h.Write([]byte(f.sourcePath))
	return hex.EncodeToString(h.Sum(nil))
}

// ApplyValidation replaces the finding's validation verdict.
func (f *Finding) ApplyValidation(v ValidationResult) {
	f.validation = &v
	f.updatedAt = time.Now()
}

// ApplyOsint replaces the finding's exposure context.
func (f *Finding) ApplyOsint(ctx OsintContext) {
	f.osint = &ctx
	f.updatedAt = time.Now()
}

// ApplyRisk replaces the finding's fused risk assessment.
func (f *Finding) ApplyRisk(r RiskAssessment) {
	f.risk = &r
	f.updatedAt = time.Now()
}

// ValidationLabelOrEmpty returns the validation label, or "" when the finding
// has not been validated yet.
func (f *Finding) ValidationLabelOrEmpty() ValidationLabel {
	if f.validation == nil {
		return ""
	}
	return f.validation.Label
}
