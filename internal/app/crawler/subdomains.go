package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

const (
	// MaxSubdomains caps how many enumerated hosts join the crawl frontier.
	MaxSubdomains = 10

	crtShEndpoint     = "https://crt.sh/?q=%s&output=json"
	subdomainTimeout  = 30 * time.Second
	subdomainAttempts = 3
)

// SubdomainEnumerator discovers sibling hosts for a seed domain from
// certificate transparency logs. Enumeration is best effort: any failure
// yields an empty slice, never an error that would fail the scan.
type SubdomainEnumerator struct {
	client *http.Client
	logger *logger.Logger
}

// NewSubdomainEnumerator constructs an enumerator with its own HTTP client.
func NewSubdomainEnumerator(log *logger.Logger) *SubdomainEnumerator {
	return &SubdomainEnumerator{
		client: &http.Client{Timeout: subdomainTimeout},
		logger: log.With("component", "subdomain_enumerator"),
	}
}

type crtShEntry struct {
	NameValue string `json:"name_value"`
}

// Enumerate queries crt.sh for certificates covering seedURL's registrable
// domain and returns up to MaxSubdomains distinct hostnames. Wildcard
// entries are skipped and a leading "www." is stripped from the seed before
// querying.
func (e *SubdomainEnumerator) Enumerate(ctx context.Context, seedURL string) []string {
	domain := registrableDomain(seedURL)
	if domain == "" {
		return nil
	}

	var entries []crtShEntry
	op := func() error {
		var err error
		entries, err = e.query(ctx, domain)
		return err
	}
	expBackoff := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, backoff.WithMaxRetries(expBackoff, subdomainAttempts)); err != nil {
		e.logger.Warn(ctx, "Subdomain enumeration failed, continuing without subdomains",
			"domain", domain, "error", err)
		return nil
	}

	seen := make(map[string]struct{})
	var hosts []string
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || strings.Contains(name, "*") {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			hosts = append(hosts, name)
		}
	}
	sort.Strings(hosts)
	if len(hosts) > MaxSubdomains {
		hosts = hosts[:MaxSubdomains]
	}
	e.logger.Info(ctx, "Subdomain enumeration completed", "domain", domain, "count", len(hosts))
	return hosts
}

func (e *SubdomainEnumerator) query(ctx context.Context, domain string) ([]crtShEntry, error) {
	endpoint := fmt.Sprintf(crtShEndpoint, url.QueryEscape("%."+domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build crt.sh request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query crt.sh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crt.sh returned status %d", resp.StatusCode)
	}

	var entries []crtShEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode crt.sh response: %w", err)
	}
	return entries, nil
}

// registrableDomain extracts the hostname from a seed URL and strips a
// leading "www." so crt.sh matches the whole certificate family.
func registrableDomain(seedURL string) string {
	u, err := url.Parse(seedURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		host = strings.TrimSpace(seedURL)
	}
	return strings.TrimPrefix(host, "www.")
}
