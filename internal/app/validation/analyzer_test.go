package validation

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

type fakeResolver struct {
	mx    bool
	a     bool
	mxErr error
	aErr  error
}

func (r *fakeResolver) LookupMX(context.Context, string) (bool, error) { return r.mx, r.mxErr }
func (r *fakeResolver) LookupA(context.Context, string) (bool, error)  { return r.a, r.aErr }

func makeJWT(t *testing.T, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(header)) + "." + enc([]byte(payload)) + ".c2lnbmF0dXJlLW1hdGVyaWFsLTEyMzQ1Ng"
}

func TestAnalyze_JWT(t *testing.T) {
	t.Parallel()
	analyzer := NewAnalyzer(nil)

	t.Run("well formed with standard claims", func(t *testing.T) {
		t.Parallel()
		token := makeJWT(t,
			`{"alg":"HS256","typ":"JWT"}`,
			`{"iss":"issuer","sub":"subject","exp":1893456000,"iat":1700000000}`,
		)

		res := analyzer.Analyze(context.Background(), token, "jwt")

		assert.Equal(t, scanning.ValidationLabelValid, res.Label)
		// 85 base + 4 claims * 2 = 93.
		assert.Equal(t, 93, res.Confidence)
		assert.ElementsMatch(t, []string{"iss", "sub", "exp", "iat"}, res.Metadata["standard_claims"])
	})

	t.Run("confidence capped at 95", func(t *testing.T) {
		t.Parallel()
		token := makeJWT(t,
			`{"alg":"HS256"}`,
			`{"iss":"i","sub":"s","aud":"a","exp":1,"iat":2,"nbf":3,"jti":"j"}`,
		)

		res := analyzer.Analyze(context.Background(), token, "jwt")

		assert.Equal(t, scanning.ValidationLabelValid, res.Label)
		assert.Equal(t, 95, res.Confidence)
	})

	t.Run("non-json payload rejected", func(t *testing.T) {
		t.Parallel()
		enc := base64.RawURLEncoding.EncodeToString
		token := enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte("not json at all")) + ".sigsigsigsig"

		res := analyzer.Analyze(context.Background(), token, "jwt")

		assert.Equal(t, scanning.ValidationLabelInvalid, res.Label)
		assert.Equal(t, 100, res.Confidence)
	})

	t.Run("low signature entropy penalized", func(t *testing.T) {
		t.Parallel()
		enc := base64.RawURLEncoding.EncodeToString
		token := enc([]byte(`{"alg":"HS256"}`)) + "." + enc([]byte(`{"custom":"claim"}`)) + ".aaaaaaaaaaaa"

		res := analyzer.Analyze(context.Background(), token, "jwt")

		assert.Equal(t, scanning.ValidationLabelValid, res.Label)
		assert.Equal(t, 65, res.Confidence)
	})
}

func TestAnalyze_MalformedJWTSeparators(t *testing.T) {
	t.Parallel()
	analyzer := NewAnalyzer(nil)

	tests := []struct {
		name      string
		candidate string
	}{
		{"zero separators", strings.Repeat("a", 40)},
		{"one separator", strings.Repeat("a", 20) + "." + strings.Repeat("b", 20)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := analyzer.Analyze(context.Background(), tt.candidate, "jwt")
			assert.Equal(t, scanning.ValidationLabelInvalid, res.Label)
			assert.Equal(t, 100, res.Confidence)
		})
	}
}

func TestAnalyze_Email(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		resolver       Resolver
		wantLabel      scanning.ValidationLabel
		wantConfidence int
	}{
		{"mx present", &fakeResolver{mx: true}, scanning.ValidationLabelLikely, 90},
		{"a record only", &fakeResolver{a: true}, scanning.ValidationLabelLikely, 70},
		{"neither resolves", &fakeResolver{}, scanning.ValidationLabelInvalid, 90},
		{"no resolver configured", nil, scanning.ValidationLabelLikely, 50},
		{
			"resolver unavailable",
			&fakeResolver{mxErr: errors.New("timeout"), aErr: errors.New("timeout")},
			scanning.ValidationLabelLikely, 50,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			analyzer := NewAnalyzer(tt.resolver)

			res := analyzer.Analyze(context.Background(), "alice@corp.example.org", "email")

			assert.Equal(t, tt.wantLabel, res.Label)
			assert.Equal(t, tt.wantConfidence, res.Confidence)
			assert.Equal(t, "corp.example.org", res.Metadata["domain"])
		})
	}
}

func TestAnalyze_GenericToken(t *testing.T) {
	t.Parallel()
	analyzer := NewAnalyzer(nil)

	t.Run("below type minimum is invalid", func(t *testing.T) {
		t.Parallel()
		res := analyzer.Analyze(context.Background(), "shortkey1234", "api_key")
		assert.Equal(t, scanning.ValidationLabelInvalid, res.Label)
		assert.Equal(t, 90, res.Confidence)
	})

	t.Run("long low-entropy string is invalid", func(t *testing.T) {
		t.Parallel()
		res := analyzer.Analyze(context.Background(), strings.Repeat("ab", 15), "generic")
		assert.Equal(t, scanning.ValidationLabelInvalid, res.Label)
		assert.Equal(t, 80, res.Confidence)
	})

	t.Run("high entropy string is likely", func(t *testing.T) {
		t.Parallel()
		res := analyzer.Analyze(context.Background(), "aB3$xK9!mQ2#wZ7&vN4%pL6^dF8*gH1c", "generic")
		assert.Equal(t, scanning.ValidationLabelLikely, res.Label)
		assert.Equal(t, 70, res.Confidence)
	})

	t.Run("moderate entropy is neutral likely", func(t *testing.T) {
		t.Parallel()
		res := analyzer.Analyze(context.Background(), "plausiblekey", "generic")
		assert.Equal(t, scanning.ValidationLabelLikely, res.Label)
		assert.Equal(t, 50, res.Confidence)
	})

	t.Run("base64 json adds decode metadata only", func(t *testing.T) {
		t.Parallel()
		token := base64.StdEncoding.EncodeToString([]byte(`{"user":"svc","role":"admin"}`))
		require.Zero(t, len(token)%4)

		res := analyzer.Analyze(context.Background(), token, "generic")

		assert.Equal(t, scanning.ValidationLabelLikely, res.Label)
		assert.Equal(t, "json", res.Metadata["decoded_content"])
	})
}

func TestAnalyze_EmptyCandidate(t *testing.T) {
	t.Parallel()
	res := NewAnalyzer(nil).Analyze(context.Background(), "", "generic")
	assert.Equal(t, scanning.ValidationLabelInvalid, res.Label)
	assert.Zero(t, res.Confidence)
}

func TestShannonEntropy(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ShannonEntropy(""))
	assert.Zero(t, ShannonEntropy("aaaaaaaa"))

	// n distinct equally frequent characters approach log2(n).
	assert.InDelta(t, 1.0, ShannonEntropy("ab"), 1e-9)
	assert.InDelta(t, 2.0, ShannonEntropy("abcd"), 1e-9)
	assert.InDelta(t, 4.0, ShannonEntropy("abcdefghijklmnop"), 1e-9)
	assert.InDelta(t, math.Log2(26), ShannonEntropy("abcdefghijklmnopqrstuvwxyz"), 1e-9)
}
