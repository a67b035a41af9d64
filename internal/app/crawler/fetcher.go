package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Fetch timing bounds. The soft timeout covers connection setup and each
// read; the hard timeout is an absolute wall-clock cap measured from the
// start of the request, enforced while streaming the body.
const (
	SoftTimeout = 10 * time.Second
	HardTimeout = 12 * time.Second

	// readChunkSize is how much body is read between hard-timeout checks.
	readChunkSize = 1024
)

// userAgents is a fixed pool of common browser identities rotated across
// requests so the crawler does not present a single fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

type uaRotator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newUARotator() *uaRotator {
	return &uaRotator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *uaRotator) next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return userAgents[r.rng.Intn(len(userAgents))]
}

// RateWaiter gates each outbound request. Satisfied by common.RateLimiter.
type RateWaiter interface {
	Wait(ctx context.Context) error
}

// Fetcher issues bounded HTTP GETs on behalf of the crawler. TLS
// verification is disabled: scan targets routinely serve expired or
// self-signed certificates and the crawler only reads public content.
type Fetcher struct {
	client  *http.Client
	limiter RateWaiter
	ua      *uaRotator
}

// NewFetcher constructs a Fetcher. limiter may be nil, in which case no
// rate limiting is applied.
func NewFetcher(limiter RateWaiter) *Fetcher {
	transport := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		ResponseHeaderTimeout: SoftTimeout,
		MaxIdleConnsPerHost:   4,
	}
	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   HardTimeout + time.Second,
		},
		limiter: limiter,
		ua:      newUARotator(),
	}
}

// FetchResult is the outcome of a single GET.
type FetchResult struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       string
	FinalURL   string
}

// Fetch retrieves url, streaming the body in small chunks so the hard
// wall-clock timeout holds even against servers that trickle bytes. Bodies
// larger than maxBytes are abandoned and reported as an error.
func (f *Fetcher) Fetch(ctx context.Context, url string, maxBytes int) (*FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, HardTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.ua.next())
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := readBounded(resp.Body, start, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   finalURL,
	}, nil
}

// errBodyTooLarge signals a response exceeding the caller's size cap.
var errBodyTooLarge = fmt.Errorf("response body exceeds size cap")

func readBounded(r io.Reader, start time.Time, maxBytes int) (string, error) {
	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		if time.Since(start) > HardTimeout {
			return "", fmt.Errorf("hard timeout of %s reached", HardTimeout)
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > maxBytes {
				return "", errBodyTooLarge
			}
		}
		if err == io.EOF {
			return string(buf), nil
		}
		if err != nil {
			return "", err
		}
	}
}
