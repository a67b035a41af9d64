// Package validation implements offline plausibility analysis for candidate
// secrets: structural JWT checks, DNS-backed email checks and entropy-based
// generic token scoring. No network call ever touches the secret itself.
package validation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/SaTyAbHr2005/sentrix/internal/app/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// Entropy thresholds in bits per character, typical for random secrets.
const (
	EntropyHigh = 4.5
	EntropyLow  = 2.5

	// minJWTLen separates dotted identifiers from JWT candidates.
	minJWTLen = 30

	// jwtBaseConfidence is the score for a structurally valid JWT before
	// claim and entropy adjustments.
	jwtBaseConfidence = 85
	// jwtClaimBoost is added per recognized standard claim.
	jwtClaimBoost = 2
	// jwtMaxConfidence caps JWT confidence since signatures cannot be
	// verified offline.
	jwtMaxConfidence = 95
	// jwtLowSigEntropyPenalty is subtracted when the signature segment has
	// implausibly low entropy.
	jwtLowSigEntropyPenalty = 20
	jwtSigEntropyFloor      = 3.0
)

// standardClaims are the registered JWT claim names that boost confidence.
var standardClaims = []string{"iss", "sub", "aud", "exp", "iat", "nbf", "jti"}

var (
	emailShape  = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)
	base64Shape = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
)

// Resolver answers the DNS questions email validation needs. A nil Resolver
// downgrades email checks to structure-only neutral results.
type Resolver interface {
	// LookupMX reports whether the domain has at least one MX record.
	LookupMX(ctx context.Context, domain string) (bool, error)
	// LookupA reports whether the domain has at least one A record.
	LookupA(ctx context.Context, domain string) (bool, error)
}

// Analyzer scores candidate secrets offline.
type Analyzer struct {
	resolver Resolver
}

// NewAnalyzer constructs an Analyzer. resolver may be nil.
func NewAnalyzer(resolver Resolver) *Analyzer {
	return &Analyzer{resolver: resolver}
}

// Analyze validates one candidate. declaredType guides dispatch and minimum
// length selection; unknown types are treated as generic.
func (a *Analyzer) Analyze(ctx context.Context, candidate, declaredType string) scanning.ValidationResult {
	if candidate == "" {
		return result(scanning.ValidationLabelInvalid, 0, "Empty secret", nil)
	}

	declaredType = strings.ToLower(declaredType)

	if strings.Contains(declaredType, "jwt") || looksLikeJWT(candidate) {
		return validateJWT(candidate)
	}

	if strings.Contains(declaredType, "email") || strings.Contains(candidate, "@") {
		if emailShape.MatchString(candidate) {
			return a.validateEmail(ctx, candidate)
		}
	}

	return validateGenericToken(candidate, declaredType)
}

func result(label scanning.ValidationLabel, confidence int, reason string, metadata map[string]any) scanning.ValidationResult {
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	return scanning.ValidationResult{
		Label:      label,
		Confidence: confidence,
		Reason:     reason,
		Metadata:   metadata,
	}
}

// looksLikeJWT requires exactly two separators and JWT-plausible length.
func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2 && len(s) > minJWTLen
}

func validateJWT(token string) scanning.ValidationResult {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return result(scanning.ValidationLabelInvalid, 100, "Malformatted JWT: incorrect number of segments", nil)
	}
	headerB64, payloadB64, signatureB64 := parts[0], parts[1], parts[2]
	if headerB64 == "" || payloadB64 == "" {
		return result(scanning.ValidationLabelInvalid, 100, "Malformatted JWT: empty header or payload", nil)
	}

	header, ok := decodeBase64URLJSON(headerB64)
	if !ok {
		return result(scanning.ValidationLabelInvalid, 100, "JWT header is not a valid JSON object", nil)
	}
	payload, ok := decodeBase64URLJSON(payloadB64)
	if !ok {
		return result(scanning.ValidationLabelInvalid, 100, "JWT payload is not a valid JSON object", nil)
	}

	metadata := map[string]any{
		"header": header,
		"claims": payload,
	}

	confidence := jwtBaseConfidence
	var detected []string
	for _, claim := range standardClaims {
		if _, ok := payload[claim]; ok {
			detected = append(detected, claim)
		}
	}
	if len(detected) > 0 {
		confidence += len(detected) * jwtClaimBoost
		metadata["standard_claims"] = detected
	}

	sigEntropy := ShannonEntropy(signatureB64)
	metadata["signature_entropy"] = sigEntropy
	if sigEntropy < jwtSigEntropyFloor {
		confidence -= jwtLowSigEntropyPenalty
	}
	if confidence > jwtMaxConfidence {
		confidence = jwtMaxConfidence
	}

	return result(scanning.ValidationLabelValid, confidence, "Structurally valid JWT", metadata)
}

// decodeBase64URLJSON decodes a base64url segment and requires a JSON
// object.
func decodeBase64URLJSON(segment string) (map[string]any, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func (a *Analyzer) validateEmail(ctx context.Context, email string) scanning.ValidationResult {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return result(scanning.ValidationLabelInvalid, 100, "Invalid email format", nil)
	}
	domain := parts[1]
	metadata := map[string]any{"domain": domain}

	if a.resolver == nil {
		return result(scanning.ValidationLabelLikely, 50, "Email structure valid (DNS check skipped)", metadata)
	}

	hasMX, mxErr := a.resolver.LookupMX(ctx, domain)
	if mxErr == nil && hasMX {
		metadata["mx_found"] = true
		return result(scanning.ValidationLabelLikely, 90, fmt.Sprintf("Valid MX records for %s", domain), metadata)
	}

	hasA, aErr := a.resolver.LookupA(ctx, domain)
	if aErr == nil && hasA {
		metadata["a_found"] = true
		return result(scanning.ValidationLabelLikely, 70, fmt.Sprintf("No MX but valid A record for %s", domain), metadata)
	}

	if mxErr != nil && aErr != nil {
		// Resolver trouble, not proof of a dead domain.
		return result(scanning.ValidationLabelLikely, 50, "Email structure valid (DNS unavailable)", metadata)
	}
	return result(scanning.ValidationLabelInvalid, 90, fmt.Sprintf("Domain %s has no MX or A records", domain), metadata)
}

func validateGenericToken(token, declaredType string) scanning.ValidationResult {
	length := len(token)
	entropy := ShannonEntropy(token)

	metadata := map[string]any{
		"length":  length,
		"entropy": entropy,
	}

	minLen := rules.MinSecretLength(declaredType)
	if length < minLen {
		return result(scanning.ValidationLabelInvalid, 90,
			fmt.Sprintf("Token too short (len=%d, min=%d)", length, minLen), metadata)
	}

	// Base64 plausibility: decode hints are informational only, they never
	// decide the label.
	if base64Shape.MatchString(token) && length%4 == 0 {
		if decoded, err := base64.StdEncoding.DecodeString(token); err == nil && len(decoded) > 0 {
			if looksLikeJSON(decoded) {
				metadata["decoded_content"] = "json"
			}
			printable := 0
			for _, b := range decoded {
				if b >= 32 && b <= 126 {
					printable++
				}
			}
			metadata["decoded_printable_ratio"] = float64(printable) / float64(len(decoded))
		}
	}

	if entropy < EntropyLow && length > 20 {
		return result(scanning.ValidationLabelInvalid, 80, "Entropy too low for secret material", metadata)
	}
	if entropy > EntropyHigh {
		return result(scanning.ValidationLabelLikely, 70, "High entropy string", metadata)
	}
	return result(scanning.ValidationLabelLikely, 50, "Plausible length and chars", metadata)
}

func looksLikeJSON(decoded []byte) bool {
	var v any
	if err := json.Unmarshal(decoded, &v); err != nil {
		return false
	}
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
