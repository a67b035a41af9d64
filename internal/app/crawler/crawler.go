// Package crawler implements the discovery stage: it walks a target's
// pages and script graph, collecting inline and external JavaScript assets
// for downstream analysis.
package crawler

import (
	"container/list"
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// Summary is the discovery stage's persisted result. SeedHeaders keeps the
// seed page's response headers for downstream exposure correlation.
type Summary struct {
	PagesScanned   int               `json:"pages_scanned"`
	Subdomains     []string          `json:"subdomains,omitempty"`
	InlineAssets   int               `json:"inline_assets"`
	ExternalAssets int               `json:"external_assets"`
	FetchFailures  int               `json:"fetch_failures"`
	CapReached     bool              `json:"cap_reached,omitempty"`
	SeedHeaders    map[string]string `json:"seed_headers,omitempty"`
}

// Crawler discovers script assets for a scan task.
type Crawler struct {
	fetcher    *Fetcher
	enumerator *SubdomainEnumerator
	assets     scanning.AssetRepository
	logger     *logger.Logger
	tracer     trace.Tracer
}

// NewCrawler assembles a Crawler from its collaborators. enumerator may be
// nil when subdomain enumeration is disabled deployment-wide.
func NewCrawler(
	fetcher *Fetcher,
	enumerator *SubdomainEnumerator,
	assets scanning.AssetRepository,
	log *logger.Logger,
	tracer trace.Tracer,
) *Crawler {
	return &Crawler{
		fetcher:    fetcher,
		enumerator: enumerator,
		assets:     assets,
		logger:     log.With("component", "crawler"),
		tracer:     tracer,
	}
}

// Crawl runs discovery for task: enumerate subdomains when requested, scan
// every page for inline and external scripts, then BFS the external script
// graph up to the task's asset cap. Fetch failures are tolerated per URL;
// Crawl only fails on persistence errors or context cancellation.
func (c *Crawler) Crawl(ctx context.Context, task *scanning.Task) (*Summary, error) {
	ctx, span := c.tracer.Start(ctx, "crawler.crawl",
		trace.WithAttributes(
			attribute.String("task_id", task.ID().String()),
			attribute.String("seed_url", task.SeedURL()),
			attribute.Bool("enumerate_subdomains", task.EnumerateSubdomains()),
		))
	defer span.End()

	summary := &Summary{}

	pages := []string{task.SeedURL()}
	if task.EnumerateSubdomains() && c.enumerator != nil {
		subs := c.enumerator.Enumerate(ctx, task.SeedURL())
		summary.Subdomains = subs
		for _, sub := range subs {
			if !strings.HasPrefix(sub, "http://") && !strings.HasPrefix(sub, "https://") {
				sub = "https://" + sub
			}
			pages = append(pages, sub)
		}
	}
	pages = dedupeStrings(pages)

	state := newCrawlState(task.AssetCap())

	for _, pageURL := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.PagesScanned++
		if err := c.scanPage(ctx, task.ID(), pageURL, state, summary); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page scan failed")
			return nil, err
		}
	}

	if err := c.walkScripts(ctx, task, state, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "script walk failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("inline_assets", summary.InlineAssets),
		attribute.Int("external_assets", summary.ExternalAssets),
	)
	c.logger.Info(ctx, "Discovery completed",
		"task_id", task.ID(),
		"pages", summary.PagesScanned,
		"inline", summary.InlineAssets,
		"external", summary.ExternalAssets,
		"failures", summary.FetchFailures)
	return summary, nil
}

// crawlState tracks the BFS frontier and everything already handled.
type crawlState struct {
	queue      *list.List
	queued     map[string]struct{}
	visited    map[string]struct{}
	inlineSeen map[string]struct{}
	assetCap   int
	persisted  int
}

func newCrawlState(assetCap int) *crawlState {
	return &crawlState{
		queue:      list.New(),
		queued:     make(map[string]struct{}),
		visited:    make(map[string]struct{}),
		inlineSeen: make(map[string]struct{}),
		assetCap:   assetCap,
	}
}

func (s *crawlState) enqueue(u string) {
	if _, ok := s.visited[u]; ok {
		return
	}
	if _, ok := s.queued[u]; ok {
		return
	}
	s.queued[u] = struct{}{}
	s.queue.PushBack(u)
}

func (s *crawlState) dequeue() (string, bool) {
	front := s.queue.Front()
	if front == nil {
		return "", false
	}
	s.queue.Remove(front)
	u := front.Value.(string)
	delete(s.queued, u)
	return u, true
}

// scanPage fetches one HTML page, persisting its inline scripts and feeding
// its external script references into the BFS frontier.
func (c *Crawler) scanPage(ctx context.Context, taskID uuid.UUID, pageURL string, state *crawlState, summary *Summary) error {
	res, err := c.fetcher.Fetch(ctx, pageURL, MaxPageBytes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.FetchFailures++
		c.logger.Warn(ctx, "Page fetch failed", "task_id", taskID, "url", pageURL, "error", err)
		return nil
	}

	if summary.SeedHeaders == nil {
		summary.SeedHeaders = make(map[string]string, len(res.Header))
		for name := range res.Header {
			summary.SeedHeaders[name] = res.Header.Get(name)
		}
	}

	for _, jsURL := range ExtractScriptURLs(res.Body, pageURL) {
		state.enqueue(jsURL)
	}

	for _, body := range ExtractInlineScripts(res.Body) {
		if len(body) > scanning.MaxInlineContentBytes {
			continue
		}
		hash := scanning.HashContent(body)
		if _, ok := state.inlineSeen[hash]; ok {
			continue
		}
		state.inlineSeen[hash] = struct{}{}

		asset := scanning.NewInlineAsset(taskID, pageURL, body)
		if err := c.assets.CreateAsset(ctx, asset); err != nil {
			return err
		}
		summary.InlineAssets++
	}
	return nil
}

// walkScripts drains the BFS frontier until it empties or the asset cap is
// reached, persisting each reachable external script.
func (c *Crawler) walkScripts(ctx context.Context, task *scanning.Task, state *crawlState, summary *Summary) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if state.persisted >= state.assetCap {
			summary.CapReached = true
			c.logger.Info(ctx, "Asset cap reached, stopping crawl",
				"task_id", task.ID(), "cap", state.assetCap)
			return nil
		}
		jsURL, ok := state.dequeue()
		if !ok {
			return nil
		}

		jsURL = NormalizeURL(task.SeedURL(), jsURL)
		if jsURL == "" {
			continue
		}
		if _, seen := state.visited[jsURL]; seen {
			continue
		}
		state.visited[jsURL] = struct{}{}

		res, err := c.fetcher.Fetch(ctx, jsURL, scanning.MaxExternalContentBytes)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.FetchFailures++
			c.logger.Warn(ctx, "Script fetch failed", "task_id", task.ID(), "url", jsURL, "error", err)
			continue
		}
		if res.Body == "" {
			continue
		}

		asset := scanning.NewExternalAsset(task.ID(), task.SeedURL(), jsURL, res.Body)
		if err := c.assets.CreateAsset(ctx, asset); err != nil {
			return err
		}
		state.persisted++
		summary.ExternalAssets++

		for _, nested := range ExtractNestedScriptURLs(res.Body, jsURL) {
			state.enqueue(nested)
		}
	}
}

// MaxPageBytes bounds how much HTML one page fetch may return.
const MaxPageBytes = 5_000_000

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
