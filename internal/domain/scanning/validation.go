package scanning

// ValidationLabel classifies the structural plausibility of a secret candidate.
// The labels are mutually exclusive; the analyzer never emits more than one.
type ValidationLabel string

const (
	// ValidationLabelValid means the candidate is structurally confirmed
	// (e.g. a well-formed JWT with decodable header and payload).
	ValidationLabelValid ValidationLabel = "valid"
	// ValidationLabelLikely means the candidate is plausible but unconfirmed.
	ValidationLabelLikely ValidationLabel = "likely"
	// ValidationLabelInvalid means the candidate fails structural checks.
	ValidationLabelInvalid ValidationLabel = "invalid"
)

// String returns the string representation of the ValidationLabel.
func (l ValidationLabel) String() string { return string(l) }

// ValidationResult is the outcome of offline validation for one candidate.
// Metadata carries numeric hints (length, entropy, decode results) consumed by
// downstream feature extraction.
type ValidationResult struct {
	Label      ValidationLabel `json:"label"`
	Confidence int             `json:"confidence"`
	Reason     string          `json:"reason"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}
