// Package scanner applies the user's policy to batches of observed channels,
// serving what it can from the decision cache and resolving the rest against
// the catalog.
package scanner

import (
	"context"
	"log/slog"
	"sync"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/client/cache"
	"chanfilter/internal/client/policy"
)

//go:generate mockgen -source=scanner.go -destination=mocks/mocks.go -package=mocks Resolver,Applier

// Item is one observed channel. Ref identifies the observation (a row, a card,
// a line of input); Key is the identity resolved against the catalog.
type Item struct {
	Ref string
	Key models.IdentityKey
}

func (it Item) seenRef() string {
	if it.Ref != "" {
		return it.Ref
	}
	return it.Key.String()
}

// Source tells where a decision's categories came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceServer Source = "server"
)

// Decision is the outcome for one item.
type Decision struct {
	Item       Item
	Categories models.CategorySet
	Blocked    bool
	Source     Source
}

type Resolver interface {
	Resolve(ctx context.Context, keys []models.IdentityKey) ([]Resolution, error)
}

// Applier acts on decisions, for example by hiding blocked items. It may be
// called more than once for the same item and must be idempotent.
type Applier interface {
	Apply(ctx context.Context, d Decision)
}

// PolicySource yields the policy in force. policy.Watcher satisfies it.
type PolicySource interface {
	Current() policy.Policy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy policy.Policy

func (p StaticPolicy) Current() policy.Policy {
	return policy.Policy(p)
}

// Report summarizes one Scan call.
type Report struct {
	Seen     int
	Skipped  int
	Cached   int
	Pending  int
	Dropped  int
	Requests int
}

// Scanner runs scan passes. It is safe for concurrent use.
type Scanner struct {
	resolver Resolver
	cache    cache.Cache
	policy   PolicySource
	applier  Applier
	seen     *SeenSet
	logger   *slog.Logger

	wg sync.WaitGroup
}

type Option func(s *Scanner)

func WithSeenSet(seen *SeenSet) Option {
	return func(s *Scanner) {
		if seen != nil {
			s.seen = seen
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

func New(resolver Resolver, c cache.Cache, policies PolicySource, applier Applier, opts ...Option) *Scanner {
	s := &Scanner{
		resolver: resolver,
		cache:    c,
		policy:   policies,
		applier:  applier,
		seen:     NewSeenSet(10000, 0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan makes one pass over items. Items already seen are skipped. Cache hits
// are applied before Scan returns; the remaining items are resolved in the
// background and applied when the response arrives. Use Wait to block until
// that happens.
func (s *Scanner) Scan(ctx context.Context, items []Item) Report {
	var report Report
	var pending []Item
	for _, it := range items {
		if it.Key.Empty() {
			report.Dropped++
			continue
		}
		if !s.seen.MarkIfNew(it.seenRef()) {
			report.Skipped++
			continue
		}
		report.Seen++
		if cats, ok := s.cache.Get(it.Key); ok {
			report.Cached++
			s.apply(ctx, it, cats, SourceCache)
			continue
		}
		pending = append(pending, it)
	}
	report.Pending = len(pending)
	if len(pending) == 0 {
		return report
	}

	keys := make([]models.IdentityKey, len(pending))
	for i, it := range pending {
		keys[i] = it.Key
	}
	keys, _ = models.DedupeIdentities(keys)
	report.Requests = 1

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.resolvePending(ctx, pending, keys)
	}()
	return report
}

// Wait blocks until every background resolution started so far has finished.
func (s *Scanner) Wait() {
	s.wg.Wait()
}

func (s *Scanner) resolvePending(ctx context.Context, pending []Item, keys []models.IdentityKey) {
	results, err := s.resolver.Resolve(ctx, keys)
	if err != nil {
		// Fail open: nothing is cached or hidden, and the items are retried on
		// the next pass.
		s.logger.WarnContext(ctx, "category lookup failed, leaving items visible",
			"error", err,
			"items", len(pending),
		)
		for _, it := range pending {
			s.seen.Forget(it.seenRef())
		}
		return
	}

	byKey := make(map[models.IdentityKey]models.CategorySet, len(results))
	for _, r := range results {
		if _, dup := byKey[r.Key]; dup {
			continue
		}
		byKey[r.Key] = r.Categories
		if err := s.cache.Put(ctx, r.Key, r.Categories); err != nil {
			s.logger.WarnContext(ctx, "failed to persist cache entry", "error", err)
		}
	}

	unresolved := 0
	for _, it := range pending {
		cats, ok := byKey[it.Key]
		if !ok {
			unresolved++
			continue
		}
		s.apply(ctx, it, cats, SourceServer)
	}
	if unresolved > 0 {
		s.logger.DebugContext(ctx, "items left unresolved", "count", unresolved)
	}
}

func (s *Scanner) apply(ctx context.Context, it Item, cats models.CategorySet, source Source) {
	s.applier.Apply(ctx, Decision{
		Item:       it,
		Categories: cats.Clone(),
		Blocked:    s.policy.Current().Decide(cats),
		Source:     source,
	})
}

// Collector is an Applier that keeps every decision in memory.
type Collector struct {
	mu        sync.Mutex
	decisions []Decision
}

func (c *Collector) Apply(_ context.Context, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions = append(c.decisions, d)
}

// Decisions returns a copy of the decisions collected so far.
func (c *Collector) Decisions() []Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Decision, len(c.decisions))
	copy(out, c.decisions)
	return out
}
