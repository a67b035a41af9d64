package osint

import (
	"strings"

	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// CrawlContext is the target-wide evidence the correlator fingerprints:
// response headers, every crawled page URL and every external script URL.
// Script bodies are not part of the fingerprint surface.
type CrawlContext struct {
	Headers    map[string]string
	URLs       []string
	ScriptURLs []string
}

// Correlator labels findings with public-exposure context.
type Correlator struct {
	data *Datasets
}

// NewCorrelator constructs a Correlator over loaded datasets.
func NewCorrelator(data *Datasets) *Correlator {
	return &Correlator{data: data}
}

// GlobalProviders computes the scan-wide cloud provider fingerprint set.
// Computed once per task and reused for every finding.
func (c *Correlator) GlobalProviders(crawl CrawlContext) []string {
	return c.data.DetectCloudProviders(crawl.Headers, crawl.URLs, crawl.ScriptURLs)
}

// Correlate builds the exposure context for one finding. globalProviders is
// the task-wide fingerprint set; reused reports whether the finding's
// matched value was validated as a real secret in another task.
func (c *Correlator) Correlate(finding *scanning.Finding, globalProviders []string, reused bool) scanning.OsintContext {
	var labels []scanning.OsintLabel
	var metadata scanning.OsintMetadata

	add := func(label scanning.OsintLabel) {
		for _, l := range labels {
			if l == label {
				return
			}
		}
		labels = append(labels, label)
	}

	sourcePath := finding.SourcePath()

	if c.data.MatchesSensitiveFile(sourcePath) {
		add(scanning.OsintLabelKnownSensitiveFile)
		metadata.ExposureSurface = "sensitive_file"
	}

	if c.data.MatchesAdminPath(pathOf(sourcePath)) {
		add(scanning.OsintLabelExposedAdminPath)
		if metadata.ExposureSurface == "" {
			metadata.ExposureSurface = "admin_path"
		}
	}

	if email := emailCandidate(finding); email != "" {
		if domain, domainType := c.data.ClassifyEmailDomain(email); domainType != "" {
			metadata.Domain = domain
			metadata.DomainType = domainType
			if domainType == DomainTypeDisposable || domainType == DomainTypeBreached {
				add(scanning.OsintLabelHighRiskDomainContext)
			}
		}
	}

	if strings.HasSuffix(strings.ToLower(trimQuery(sourcePath)), ".js") {
		add(scanning.OsintLabelPubliclyExposedArtifact)
		if metadata.ExposureSurface == "" {
			metadata.ExposureSurface = "external_js"
		}
	}

	// Infrastructure fingerprints only matter for findings that already
	// sit on an exposure surface.
	if len(globalProviders) > 0 && metadata.ExposureSurface != "" {
		add(scanning.OsintLabelInfraFingerprintExposed)
		metadata.CloudProvider = strings.Join(globalProviders, ", ")
	}

	if reused {
		add(scanning.OsintLabelSecretReuseDetected)
	}

	if len(labels) == 0 {
		add(scanning.OsintLabelNoSignal)
	}

	return scanning.OsintContext{Labels: labels, Metadata: metadata}
}

// emailCandidate returns the value to classify as an email, if any: the
// matched value for email-category findings, else a match that is shaped
// like an address.
func emailCandidate(finding *scanning.Finding) string {
	match := strings.TrimSpace(finding.Match())
	if strings.EqualFold(finding.Category(), rules.CategoryEmail) {
		return match
	}
	if at := strings.Index(match, "@"); at > 0 {
		if strings.Contains(match[at+1:], ".") {
			return match
		}
	}
	return ""
}

// pathOf strips the scheme and host from URL-shaped source paths so admin
// segment matching sees only the path.
func pathOf(sourcePath string) string {
	s := trimQuery(sourcePath)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			return s[j:]
		}
		return ""
	}
	return s
}

func trimQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
