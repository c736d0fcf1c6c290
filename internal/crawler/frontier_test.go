package crawler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFrontier(t *testing.T, cfg FrontierConfig) *Frontier {
	t.Helper()
	if cfg.Scope.Root() == "" {
		cfg.Scope = NewScope("example.com", false)
	}
	if cfg.QueryPolicy == "" {
		cfg.QueryPolicy = QuerySort
	}
	return NewFrontier(cfg)
}

func TestFrontierSeedAndDedup(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(t, FrontierConfig{})
	seed, err := f.OfferSeed("https://example.com/search?q=shoes")
	require.NoError(t, err)
	require.Equal(t, 0, seed.Depth)
	require.Equal(t, 1, f.Len())

	// Re-offering the seed's raw string is rejected as a duplicate.
	require.False(t, f.Offer("https://example.com/search?q=shoes", 0))
	// So is any variant that normalizes to the same key.
	require.False(t, f.Offer("https://example.com:443/search?q=shoes#top", 0))

	entry, ok := f.Next()
	require.True(t, ok)
	require.Equal(t, seed.Canonical, entry.Canonical)
	_, ok = f.Next()
	require.False(t, ok)
}

func TestFrontierSeedValidation(t *testing.T) {
	t.Parallel()

	t.Run("malformed seed", func(t *testing.T) {
		t.Parallel()
		f := newTestFrontier(t, FrontierConfig{})
		_, err := f.OfferSeed("://not-a-url")
		require.Error(t, err)
	})

	t.Run("out of scope seed", func(t *testing.T) {
		t.Parallel()
		f := newTestFrontier(t, FrontierConfig{})
		_, err := f.OfferSeed("https://other.com/")
		require.Error(t, err)
	})

	t.Run("double seeding", func(t *testing.T) {
		t.Parallel()
		f := newTestFrontier(t, FrontierConfig{})
		_, err := f.OfferSeed("https://example.com/")
		require.NoError(t, err)
		_, err = f.OfferSeed("https://example.com/other")
		require.Error(t, err)
	})
}

func TestFrontierSearchPageScenario(t *testing.T) {
	t.Parallel()

	// A search page links to an item, the same item with a fragment, and an
	// off-domain ad. Exactly one new entry may result.
	f := newTestFrontier(t, FrontierConfig{})
	_, err := f.OfferSeed("https://example.com/search?q=shoes")
	require.NoError(t, err)

	require.True(t, f.Offer("https://example.com/item/1", 0))
	require.False(t, f.Offer("https://example.com/item/1#details", 0))
	require.False(t, f.Offer("https://other.com/ad", 0))
	require.Equal(t, 2, f.Len())
}

func TestFrontierScopeRejection(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(t, FrontierConfig{})
	_, err := f.OfferSeed("https://example.com/")
	require.NoError(t, err)

	// Out-of-domain URLs are rejected regardless of depth.
	for depth := 0; depth < 5; depth++ {
		require.False(t, f.Offer("https://other.com/page", depth))
	}
	// Subdomains are out of scope under the default exact-host policy.
	require.False(t, f.Offer("https://shop.example.com/page", 0))
}

func TestFrontierSubdomainScope(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(t, FrontierConfig{Scope: NewScope("example.com", true)})
	_, err := f.OfferSeed("https://example.com/")
	require.NoError(t, err)

	require.True(t, f.Offer("https://shop.example.com/page", 0))
	require.False(t, f.Offer("https://example.com.evil.net/page", 0))
}

func TestFrontierBFSDepthOrder(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(t, FrontierConfig{})
	_, err := f.OfferSeed("https://example.com/")
	require.NoError(t, err)

	// Interleave offers at two depths the way concurrent workers would.
	require.True(t, f.Offer("https://example.com/a", 0))
	require.True(t, f.Offer("https://example.com/a/1", 1))
	require.True(t, f.Offer("https://example.com/b", 0))
	require.True(t, f.Offer("https://example.com/b/1", 1))

	lastDepth := -1
	seen := make(map[CanonicalURL]bool)
	for {
		entry, ok := f.Next()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, entry.Depth, lastDepth, "entries must dequeue in non-decreasing depth order")
		require.False(t, seen[entry.Canonical], "entry %q dequeued twice", entry.Canonical)
		seen[entry.Canonical] = true
		lastDepth = entry.Depth
	}
	require.Len(t, seen, 5)
}

func TestFrontierOrdersStragglerOffers(t *testing.T) {
	t.Parallel()

	// A slow worker at depth 0 offers its depth-1 link after a faster worker
	// already offered a depth-2 one; the shallower entry must still dequeue
	// first.
	f := newTestFrontier(t, FrontierConfig{})
	_, err := f.OfferSeed("https://example.com/")
	require.NoError(t, err)

	require.True(t, f.Offer("https://example.com/fast", 0))
	require.True(t, f.Offer("https://example.com/fast/child", 1))
	require.True(t, f.Offer("https://example.com/slow", 0))
	require.True(t, f.Offer("https://example.com/slow/child", 1))

	var got []CanonicalURL
	for {
		entry, ok := f.Next()
		if !ok {
			break
		}
		got = append(got, entry.Canonical)
	}
	require.Equal(t, []CanonicalURL{
		"https://example.com/",
		"https://example.com/fast",
		"https://example.com/slow",
		"https://example.com/fast/child",
		"https://example.com/slow/child",
	}, got)
}

func TestFrontierDepthPolicies(t *testing.T) {
	t.Parallel()

	t.Run("discovery bound stops enqueueing", func(t *testing.T) {
		t.Parallel()
		f := newTestFrontier(t, FrontierConfig{MaxDepth: 1, DepthPolicy: DepthBoundsDiscovery})
		_, err := f.OfferSeed("https://example.com/")
		require.NoError(t, err)

		require.True(t, f.Offer("https://example.com/a", 0))
		require.False(t, f.Offer("https://example.com/a/deep", 1))
	})

	t.Run("dispatch bound still enqueues", func(t *testing.T) {
		t.Parallel()
		f := newTestFrontier(t, FrontierConfig{MaxDepth: 1, DepthPolicy: DepthBoundsDispatch})
		_, err := f.OfferSeed("https://example.com/")
		require.NoError(t, err)

		require.True(t, f.Offer("https://example.com/a", 0))
		require.True(t, f.Offer("https://example.com/a/deep", 1))
	})
}

func TestFrontierNeverReturnsURLTwice(t *testing.T) {
	t.Parallel()

	f := newTestFrontier(t, FrontierConfig{})
	_, err := f.OfferSeed("https://example.com/")
	require.NoError(t, err)

	const workers = 8
	const perWorker = 50

	// Concurrent workers offer overlapping URL sets; half the offers are
	// duplicates of another worker's.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				f.Offer(fmt.Sprintf("https://example.com/page/%d", i), 0)
				f.Offer(fmt.Sprintf("https://example.com/worker/%d/%d", w, i), 0)
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[CanonicalURL]bool)
	for {
		entry, ok := f.Next()
		if !ok {
			break
		}
		require.False(t, seen[entry.Canonical], "entry %q dequeued twice", entry.Canonical)
		seen[entry.Canonical] = true
	}
	// Seed + 50 shared pages + 50 per worker.
	require.Len(t, seen, 1+perWorker+workers*perWorker)
}
