package osint

import (
	"sort"
	"strings"
)

// MatchesSensitiveFile reports whether the path's basename is a known
// sensitive file.
func (d *Datasets) MatchesSensitiveFile(path string) bool {
	if path == "" {
		return false
	}
	base := strings.ToLower(path[strings.LastIndex(path, "/")+1:])
	// Strip a query string left over from URL-shaped paths.
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	_, ok := d.SensitiveFiles[base]
	return ok
}

// MatchesAdminPath reports whether any full path segment, never a
// substring, is a known admin panel segment.
func (d *Datasets) MatchesAdminPath(path string) bool {
	if path == "" {
		return false
	}
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		if _, ok := d.AdminPaths[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}

// Email domain classifications.
const (
	DomainTypeDisposable = "disposable"
	DomainTypeBreached   = "breached_org"
	DomainTypeFree       = "free"
)

// ClassifyEmailDomain returns the domain and its classification, or empty
// strings when the address is malformed or the domain is unremarkable.
// Disposable wins over breached, breached over free.
func (d *Datasets) ClassifyEmailDomain(email string) (domain, domainType string) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", ""
	}
	domain = strings.ToLower(strings.TrimSpace(email[at+1:]))

	switch {
	case contains(d.DisposableDomains, domain):
		return domain, DomainTypeDisposable
	case contains(d.BreachedDomains, domain):
		return domain, DomainTypeBreached
	case contains(d.FreeDomains, domain):
		return domain, DomainTypeFree
	}
	return "", ""
}

// DetectCloudProviders fingerprints cloud providers from header text and
// URL sets. Script bodies are deliberately excluded: bundled vendor code
// mentions every provider. The result is sorted and deduplicated.
func (d *Datasets) DetectCloudProviders(headers map[string]string, urls, scriptURLs []string) []string {
	var searchSpace []string
	for k, v := range headers {
		searchSpace = append(searchSpace, strings.ToLower(k), strings.ToLower(v))
	}
	for _, u := range urls {
		searchSpace = append(searchSpace, strings.ToLower(u))
	}
	for _, u := range scriptURLs {
		if strings.HasPrefix(u, "http") {
			searchSpace = append(searchSpace, strings.ToLower(u))
		}
	}

	providers := make(map[string]struct{})
	for provider, indicators := range d.CloudFingerprints {
		for _, indicator := range indicators {
			if anyContains(searchSpace, indicator) {
				providers[provider] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(providers))
	for p := range providers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func anyContains(entries []string, substr string) bool {
	for _, e := range entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
