// Package rules provides the application services around leak detection
// rules: seeding the pattern store, importing pattern files, and serving the
// detector a compiled, TTL-cached snapshot of enabled rules.
package rules

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	regexp "github.com/wasilibs/go-re2"

	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// DefaultCacheTTL bounds how stale a rule snapshot may get before the next
// reader triggers a refresh from the store.
const DefaultCacheTTL = 300 * time.Second

// CompiledRule pairs a rule with its compiled pattern.
type CompiledRule struct {
	domain.Rule
	Regex *regexp.Regexp
}

// snapshot is an immutable compiled rule set. Readers always see a whole
// snapshot, never a partially refreshed one.
type snapshot struct {
	rules     []CompiledRule
	loadedAt  time.Time
	fromStore bool
}

// Cache serves compiled enabled rules to the detector. The snapshot is
// replaced wholesale when the TTL expires; rules that fail compilation are
// dropped and logged; when the store is empty or unreachable the fallback
// rules keep baseline detection alive.
type Cache struct {
	repo   domain.RuleRepository
	ttl    time.Duration
	logger *logger.Logger

	current   atomic.Pointer[snapshot]
	refreshMu sync.Mutex
}

// NewCache creates a rule cache over the given repository. A ttl of zero uses
// DefaultCacheTTL.
func NewCache(repo domain.RuleRepository, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		repo:   repo,
		ttl:    ttl,
		logger: log.With("component", "rule_cache"),
	}
}

// Rules returns the current compiled rule set, refreshing from the store if
// the snapshot has expired. Concurrent callers during a refresh either
// perform the refresh or reuse the stale-but-consistent snapshot.
func (c *Cache) Rules(ctx context.Context) []CompiledRule {
	if snap := c.current.Load(); snap != nil && time.Since(snap.loadedAt) < c.ttl {
		return snap.rules
	}
	return c.refresh(ctx)
}

// Invalidate forces the next Rules call to reload from the store. Used when a
// rule update event arrives before the TTL expires.
func (c *Cache) Invalidate() {
	if snap := c.current.Load(); snap != nil {
		expired := *snap
		expired.loadedAt = time.Time{}
		c.current.Store(&expired)
	}
}

func (c *Cache) refresh(ctx context.Context) []CompiledRule {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while this one waited on the lock.
	if snap := c.current.Load(); snap != nil && time.Since(snap.loadedAt) < c.ttl {
		return snap.rules
	}

	stored, err := c.repo.ListEnabledRules(ctx)
	if err != nil {
		c.logger.Warn(ctx, "Rule store unreachable, using fallback rules", "error", err)
		return c.install(ctx, nil, false)
	}
	return c.install(ctx, stored, true)
}

// install compiles the stored rules, appends any missing fallback rules, and
// atomically publishes the new snapshot.
func (c *Cache) install(ctx context.Context, stored []domain.Rule, fromStore bool) []CompiledRule {
	compiled := make([]CompiledRule, 0, len(stored)+3)
	seen := make(map[string]struct{}, len(stored))

	for _, r := range stored {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			c.logger.Warn(ctx, "Dropping rule with invalid pattern",
				"rule_id", r.RuleID, "error", err)
			continue
		}
		compiled = append(compiled, CompiledRule{Rule: r, Regex: re})
		seen[r.RuleID] = struct{}{}
	}

	for _, fb := range FallbackRules() {
		if _, ok := seen[fb.RuleID]; ok {
			continue
		}
		re, err := regexp.Compile(fb.Pattern)
		if err != nil {
			c.logger.Error(ctx, "Fallback rule failed to compile", "rule_id", fb.RuleID, "error", err)
			continue
		}
		compiled = append(compiled, CompiledRule{Rule: fb, Regex: re})
	}

	snap := &snapshot{rules: compiled, loadedAt: time.Now(), fromStore: fromStore}
	c.current.Store(snap)

	c.logger.Info(ctx, "Installed rule snapshot",
		"rule_count", len(compiled),
		"from_store", fromStore,
	)
	return compiled
}
