package crawler

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DepthPolicy names what a max-depth limit bounds: discovery (links beyond the
// limit are never enqueued) or dispatch (they are enqueued but never fetched).
type DepthPolicy string

// Supported depth policies.
const (
	DepthBoundsDiscovery DepthPolicy = "discovery"
	DepthBoundsDispatch  DepthPolicy = "dispatch"
)

// Frontier rejection reasons, used as metric labels.
const (
	rejectMalformed = "malformed"
	rejectScope     = "scope"
	rejectDuplicate = "duplicate"
	rejectDepth     = "depth"
)

// FrontierConfig carries the policies the Frontier applies on every offer.
type FrontierConfig struct {
	Scope       Scope
	QueryPolicy QueryPolicy
	// MaxDepth bounds link discovery when > 0 and DepthPolicy is
	// DepthBoundsDiscovery. Zero means unlimited.
	MaxDepth    int
	DepthPolicy DepthPolicy
	Logger      *zap.Logger
}

// Frontier is the single authority on visitation order and dedup: a
// depth-ordered queue of entries plus the visited set, guarded by one mutex
// so concurrent Offer and Next calls are linearizable.
//
// The queue is kept sorted by depth at insertion time: a new entry goes in
// front of the first strictly deeper entry and behind every entry at its own
// depth. Entries therefore dequeue in non-decreasing depth order (the BFS
// property) and FIFO within a depth, even when a slow worker at depth d
// offers its links after a faster worker already offered depth d+1 ones.
type Frontier struct {
	mu      sync.Mutex
	queue   []Entry
	visited map[CanonicalURL]struct{}
	seeded  bool
	cfg     FrontierConfig
	logger  *zap.Logger
}

// NewFrontier creates an empty Frontier.
func NewFrontier(cfg FrontierConfig) *Frontier {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		visited: make(map[CanonicalURL]struct{}),
		cfg:     cfg,
		logger:  logger,
	}
}

// OfferSeed inserts the crawl's seed URL at depth 0. It is called exactly once
// per crawl, before any Offer; the seed is pre-marked visited so links that
// resolve back to it are rejected as duplicates.
func (f *Frontier) OfferSeed(rawURL string) (Entry, error) {
	u, err := normalizeURL(rawURL, nil, f.cfg.QueryPolicy)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid seed URL: %w", err)
	}
	if !f.cfg.Scope.Contains(u.Host) {
		return Entry{}, fmt.Errorf("seed URL host %q is outside root domain %q", u.Host, f.cfg.Scope.Root())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seeded {
		return Entry{}, fmt.Errorf("frontier already seeded")
	}
	f.seeded = true

	entry := Entry{Canonical: CanonicalURL(u.String()), Raw: rawURL, Depth: 0}
	f.visited[entry.Canonical] = struct{}{}
	f.queue = append(f.queue, entry)
	return entry, nil
}

// Offer normalizes rawURL and queues it at depth fromDepth+1 if it is in
// scope, within the depth limit, and not seen before. Rejections are expected
// high-frequency behavior and return false rather than an error.
func (f *Frontier) Offer(rawURL string, fromDepth int) bool {
	depth := fromDepth + 1
	if f.cfg.DepthPolicy != DepthBoundsDispatch && f.cfg.MaxDepth > 0 && depth > f.cfg.MaxDepth {
		FrontierRejections.WithLabelValues(rejectDepth).Inc()
		return false
	}

	u, err := normalizeURL(rawURL, nil, f.cfg.QueryPolicy)
	if err != nil {
		FrontierRejections.WithLabelValues(rejectMalformed).Inc()
		f.logger.Debug("Dropping malformed link", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	if !f.cfg.Scope.Contains(u.Host) {
		FrontierRejections.WithLabelValues(rejectScope).Inc()
		return false
	}
	canonical := CanonicalURL(u.String())

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, seen := f.visited[canonical]; seen {
		FrontierRejections.WithLabelValues(rejectDuplicate).Inc()
		return false
	}
	f.visited[canonical] = struct{}{}
	f.insert(Entry{Canonical: canonical, Raw: rawURL, Depth: depth})
	FrontierAccepted.Inc()
	return true
}

// insert places entry behind its depth cohort and ahead of anything deeper.
// Callers must hold f.mu.
func (f *Frontier) insert(entry Entry) {
	idx := sort.Search(len(f.queue), func(i int) bool {
		return f.queue[i].Depth > entry.Depth
	})
	f.queue = slices.Insert(f.queue, idx, entry)
}

// Next pops the head of the queue. The second return value is false when the
// queue is empty, which is the normal terminal signal, not an error.
func (f *Frontier) Next() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return Entry{}, false
	}
	entry := f.queue[0]
	f.queue = f.queue[1:]
	return entry, true
}

// Len reports the current queue length.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
