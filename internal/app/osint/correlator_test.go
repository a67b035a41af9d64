package osint

import (
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

func testDatasets(t *testing.T) *Datasets {
	t.Helper()
	d, err := DefaultDatasets()
	require.NoError(t, err)
	return d
}

func testFinding(category, match, sourcePath string) *scanning.Finding {
	return scanning.NewFinding(
		uuid.New(), uuid.New(),
		"test-rule", "Test Rule", category,
		scanning.RuleSeverityMedium, scanning.DetectionMethodRegex,
		match, match, sourcePath,
	)
}

func TestLoadDatasets_MissingFileIsFatal(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sensitive_files.txt": {Data: []byte(".env\n")},
		// every other dataset absent
	}

	_, err := LoadDatasets(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing OSINT dataset")
}

func TestMatchesAdminPath_FullSegmentsOnly(t *testing.T) {
	t.Parallel()
	d := testDatasets(t)

	tests := []struct {
		path string
		want bool
	}{
		{"/content/administration-guide", false},
		{"/wp-admin", true},
		{"/sub/dashboard", true},
		{"/administering/things", false},
		{"admin", true},
		{"", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, d.MatchesAdminPath(tt.path))
		})
	}
}

func TestDetectCloudProviders(t *testing.T) {
	t.Parallel()
	d := testDatasets(t)

	providers := d.DetectCloudProviders(
		map[string]string{"X-Amz-Request-Id": "abc123", "CF-Ray": "8f1c2ab-IAD"},
		[]string{"https://example.org"},
		[]string{"https://dbucket.s3.amazonaws.com/app.js"},
	)

	assert.Equal(t, []string{"aws", "cloudflare"}, providers)
}

func TestDetectCloudProviders_IgnoresNonHTTPScriptEntries(t *testing.T) {
	t.Parallel()
	d := testDatasets(t)

	providers := d.DetectCloudProviders(nil, nil, []string{"inline:amazonaws.com"})
	assert.Empty(t, providers)
}

func TestCorrelate_DisposableEmailFromExternalScript(t *testing.T) {
	t.Parallel()
	correlator := NewCorrelator(testDatasets(t))

	finding := testFinding("EMAIL", "bob@tempmail.org", "https://example.org/static/main.js")

	ctx := correlator.Correlate(finding, nil, false)

	assert.True(t, ctx.HasLabel(scanning.OsintLabelHighRiskDomainContext))
	assert.True(t, ctx.HasLabel(scanning.OsintLabelPubliclyExposedArtifact))
	assert.Equal(t, "tempmail.org", ctx.Metadata.Domain)
	assert.Equal(t, DomainTypeDisposable, ctx.Metadata.DomainType)
}

func TestCorrelate_FingerprintRequiresExposureSurface(t *testing.T) {
	t.Parallel()
	correlator := NewCorrelator(testDatasets(t))
	providers := []string{"aws"}

	t.Run("no exposure surface, no fingerprint label", func(t *testing.T) {
		t.Parallel()
		finding := testFinding("GENERIC", "sk_live_abcdef0123456789", "https://example.org/page")

		ctx := correlator.Correlate(finding, providers, false)

		assert.False(t, ctx.HasLabel(scanning.OsintLabelInfraFingerprintExposed))
		assert.Empty(t, ctx.Metadata.CloudProvider)
	})

	t.Run("exposure surface gates the label in", func(t *testing.T) {
		t.Parallel()
		finding := testFinding("GENERIC", "sk_live_abcdef0123456789", "https://example.org/bundle.js")

		ctx := correlator.Correlate(finding, providers, false)

		assert.True(t, ctx.HasLabel(scanning.OsintLabelInfraFingerprintExposed))
		assert.Equal(t, "aws", ctx.Metadata.CloudProvider)
	})
}

func TestCorrelate_SensitiveFileAndAdminPath(t *testing.T) {
	t.Parallel()
	correlator := NewCorrelator(testDatasets(t))

	finding := testFinding("GENERIC", "some-secret-material", "https://example.org/wp-admin/.env")

	ctx := correlator.Correlate(finding, nil, false)

	assert.True(t, ctx.HasLabel(scanning.OsintLabelKnownSensitiveFile))
	assert.True(t, ctx.HasLabel(scanning.OsintLabelExposedAdminPath))
	assert.Equal(t, "sensitive_file", ctx.Metadata.ExposureSurface)
}

func TestCorrelate_SecretReuse(t *testing.T) {
	t.Parallel()
	correlator := NewCorrelator(testDatasets(t))

	finding := testFinding("GENERIC", "reused-secret-value-123", "https://example.org/page")

	ctx := correlator.Correlate(finding, nil, true)
	assert.True(t, ctx.HasLabel(scanning.OsintLabelSecretReuseDetected))
	assert.False(t, ctx.HasLabel(scanning.OsintLabelNoSignal))
}

func TestCorrelate_NoSignalDefault(t *testing.T) {
	t.Parallel()
	correlator := NewCorrelator(testDatasets(t))

	finding := testFinding("GENERIC", "unremarkable-value-material", "https://example.org/page")

	ctx := correlator.Correlate(finding, nil, false)
	assert.Equal(t, []scanning.OsintLabel{scanning.OsintLabelNoSignal}, ctx.Labels)
	assert.Empty(t, ctx.Metadata.Domain)
}
