package scanning

// OsintLabel tags a finding with a public-exposure context signal.
type OsintLabel string

const (
	OsintLabelKnownSensitiveFile      OsintLabel = "KNOWN_SENSITIVE_FILE"
	OsintLabelExposedAdminPath        OsintLabel = "EXPOSED_ADMIN_PATH"
	OsintLabelPubliclyExposedArtifact OsintLabel = "PUBLICLY_EXPOSED_ARTIFACT"
	OsintLabelHighRiskDomainContext   OsintLabel = "HIGH_RISK_DOMAIN_CONTEXT"
	OsintLabelInfraFingerprintExposed OsintLabel = "INFRASTRUCTURE_FINGERPRINT_EXPOSED"
	OsintLabelSecretReuseDetected     OsintLabel = "SECRET_REUSE_DETECTED"
	OsintLabelNoSignal                OsintLabel = "NO_OSINT_SIGNAL"
)

// String returns the string representation of the OsintLabel.
func (l OsintLabel) String() string { return string(l) }

// OsintMetadata carries the contextual fields the correlator resolved for a
// finding. Fields with no value are omitted from the persisted document.
type OsintMetadata struct {
	Domain          string `json:"domain,omitempty"`
	DomainType      string `json:"domain_type,omitempty"`
	CloudProvider   string `json:"cloud_provider,omitempty"`
	ExposureSurface string `json:"exposure_surface,omitempty"`
}

// OsintContext is the exposure annotation the correlator attaches to a
// finding. Labels preserve application order and contain no duplicates.
type OsintContext struct {
	Labels   []OsintLabel  `json:"labels"`
	Metadata OsintMetadata `json:"metadata"`
}

// HasLabel reports whether the context carries the given label.
func (c OsintContext) HasLabel(label OsintLabel) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}
