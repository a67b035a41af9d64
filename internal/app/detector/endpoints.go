package detector

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"
)

// endpointPattern is the LinkFinder grammar: quoted absolute URLs, relative
// paths, path+extension forms and bare filenames with interesting
// extensions.
var endpointPattern = regexp.MustCompile(`(?:"|')(((?:[a-zA-Z]{1,10}://|//)[^"'/]{1,}\.[a-zA-Z]{2,}[^"']{0,})|((?:/|\.\./|\./)[^"'><,;| *()(%$^/\\\[\]][^"'><,;|()]{1,})|([a-zA-Z0-9_\-/]{1,}/[a-zA-Z0-9_\-/.]{1,}\.(?:[a-zA-Z]{1,4}|action)(?:[\?|#][^"|']{0,}|))|([a-zA-Z0-9_\-/]{1,}/[a-zA-Z0-9_\-/]{3,}(?:[\?|#][^"|']{0,}|))|([a-zA-Z0-9_\-]{1,}\.(?:php|asp|aspx|jsp|json|action|html|js|txt|xml)(?:[\?|#][^"|']{0,}|)))(?:"|')`)

const (
	// maxBeautifyBytes bounds the payload size eligible for statement-break
	// normalization before context capture.
	maxBeautifyBytes = 1_000_000

	// maxEndpointContextLen caps the stored context line.
	maxEndpointContextLen = 300
)

// EndpointMatch is one extracted endpoint with its surrounding source line.
type EndpointMatch struct {
	Link    string
	Context string
}

// ExtractEndpoints scans JavaScript content for endpoint-shaped strings.
// Results are deduplicated by link, in first-seen order. filter, when
// non-nil, keeps only links it matches.
func ExtractEndpoints(jsText string, filter *regexp.Regexp, includeContext bool) []EndpointMatch {
	processed := jsText
	if includeContext {
		processed = beautify(jsText)
	}

	var out []EndpointMatch
	seen := make(map[string]struct{})
	for _, loc := range endpointPattern.FindAllStringSubmatchIndex(processed, -1) {
		link := processed[loc[2]:loc[3]]
		if _, ok := seen[link]; ok {
			continue
		}
		if filter != nil && !filter.MatchString(link) {
			continue
		}
		seen[link] = struct{}{}

		m := EndpointMatch{Link: link}
		if includeContext {
			m.Context = lineContext(processed, loc[0], loc[1])
		}
		out = append(out, m)
	}
	return out
}

// beautify breaks statements onto their own lines so minified payloads
// yield usable context lines. Oversized payloads are scanned as-is.
func beautify(jsText string) string {
	if len(jsText) > maxBeautifyBytes {
		return jsText
	}
	jsText = strings.ReplaceAll(jsText, ";", ";\n")
	return strings.ReplaceAll(jsText, ",", ",\n")
}

// lineContext expands a match to the enclosing line, capped at
// maxEndpointContextLen characters.
func lineContext(content string, start, end int) string {
	cs := start
	for cs > 0 && content[cs-1] != '\n' {
		cs--
	}
	ce := end
	for ce < len(content) && content[ce] != '\n' {
		ce++
	}

	line := content[cs:ce]
	if len(line) > maxEndpointContextLen {
		line = line[:maxEndpointContextLen] + "..."
	}
	return strings.TrimSpace(line)
}
