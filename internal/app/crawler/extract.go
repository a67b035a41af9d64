package crawler

import (
	"net/url"
	"strings"

	regexp "github.com/wasilibs/go-re2"
	"golang.org/x/net/html"
)

// maxCandidateURLLen rejects garbage captures such as inlined bundles that
// happen to contain ".js" inside a huge string.
const maxCandidateURLLen = 500

// jsRefPattern finds script references assigned through the common HTML
// attributes and DOM loading idioms.
var jsRefPattern = regexp.MustCompile(
	`(?i)(?:src|href|data-main|ng-include|ng-src|fetch|import|require|createElement|appendChild|innerHTML|getScript)\s*=\s*["']([^"']+\.js[^"']*)["']`,
)

// nestedJSPatterns find references reachable only from inside already
// fetched script bodies.
var nestedJSPatterns = []*regexp.Regexp{
	// dynamic import()
	regexp.MustCompile(`import\(\s*['"]([^'"]+\.js[^'"]*)['"]\s*\)`),
	// ESM import ... from
	regexp.MustCompile(`import\s+.*?\s+from\s+['"]([^'"]+\.js[^'"]*)['"]`),
	// CommonJS require()
	regexp.MustCompile(`require\(\s*['"]([^'"]+\.js[^'"]*)['"]\s*\)`),
	// source map pointer
	regexp.MustCompile(`//#\s*sourceMappingURL=([^\s]+)`),
}

// ExtractScriptURLs scans raw HTML for external JavaScript references and
// returns them normalized against pageURL. Only http(s) URLs whose path
// mentions ".js" survive.
func ExtractScriptURLs(htmlBody, pageURL string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range jsRefPattern.FindAllStringSubmatch(htmlBody, -1) {
		u := NormalizeURL(pageURL, m[1])
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// ExtractNestedScriptURLs scans a fetched script body for further script
// references: dynamic imports, ESM imports, requires and source maps.
func ExtractNestedScriptURLs(scriptBody, scriptURL string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, pat := range nestedJSPatterns {
		for _, m := range pat.FindAllStringSubmatch(scriptBody, -1) {
			raw := m[1]
			if strings.HasPrefix(raw, "data:") {
				continue
			}
			u := NormalizeURL(scriptURL, raw)
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// NormalizeURL resolves candidate against base and filters out anything the
// crawler cannot or should not fetch. It returns "" when the candidate is
// rejected.
func NormalizeURL(base, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || len(candidate) > maxCandidateURLLen {
		return ""
	}

	var resolved string
	switch {
	case strings.HasPrefix(candidate, "http://"), strings.HasPrefix(candidate, "https://"):
		resolved = candidate
	case strings.HasPrefix(candidate, "//"):
		resolved = "https:" + candidate
	default:
		baseURL, err := url.Parse(base)
		if err != nil {
			return ""
		}
		ref, err := url.Parse(candidate)
		if err != nil {
			return ""
		}
		resolved = baseURL.ResolveReference(ref).String()
	}

	if !strings.HasPrefix(resolved, "http://") && !strings.HasPrefix(resolved, "https://") {
		return ""
	}
	if !strings.Contains(resolved, ".js") {
		return ""
	}
	return resolved
}

// ExtractInlineScripts parses HTML and returns the bodies of <script>
// elements with no src attribute. Empty bodies are skipped. Parsing is
// tolerant: x/net/html never fails on malformed markup.
func ExtractInlineScripts(htmlBody string) []string {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if !hasAttr(n, "src") {
				var sb strings.Builder
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						sb.WriteString(c.Data)
					}
				}
				if body := strings.TrimSpace(sb.String()); body != "" {
					scripts = append(scripts, body)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scripts
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key && strings.TrimSpace(a.Val) != "" {
			return true
		}
	}
	return false
}
