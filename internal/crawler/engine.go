package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pricefeed/webcrawler/internal/progress"
)

// Engine is the traversal driver: it pulls entries from the Frontier, fans
// them out to a bounded pool of fetch-and-extract workers, streams extracted
// products to the Sink, and feeds discovered links back to the Frontier.
//
// The run moves through three states: running (dispatching), draining (a
// limit or cancellation stopped dispatch but in-flight fetches may finish),
// and done. Per-page failures never abort the run; only sink failures and
// setup failures do.
type Engine struct {
	cfg       Config
	frontier  *Frontier
	fetcher   Fetcher
	extractor Extractor
	sink      Sink
	retry     RetryPolicy
	emitter   progress.Emitter
	logger    *zap.Logger
	runID     uuid.UUID

	sinkMu   sync.Mutex
	draining atomic.Bool

	pagesFetched  atomic.Int64
	pagesFailed   atomic.Int64
	products      atomic.Int64
	linksOffered  atomic.Int64
	linksRejected atomic.Int64
}

// NewEngine wires the traversal driver. A nil retry policy falls back to the
// default exponential policy; a nil emitter disables progress events.
func NewEngine(
	cfg Config,
	frontier *Frontier,
	fetcher Fetcher,
	extractor Extractor,
	sink Sink,
	retry RetryPolicy,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Engine {
	if retry == nil {
		retry = NewExponentialRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.BackoffMax)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		frontier:  frontier,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		retry:     retry,
		emitter:   emitter,
		logger:    logger,
		runID:     uuid.New(),
	}
}

// Run executes the crawl until the frontier drains, a configured limit is
// reached, or ctx is canceled. It returns a Summary of the run; the error is
// non-nil only for seed/setup failures, sink failures, and cancellation.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	seed, err := e.frontier.OfferSeed(e.cfg.Seed)
	if err != nil {
		return Summary{}, fmt.Errorf("seed frontier: %w", err)
	}
	e.logger.Info("Starting crawl",
		zap.String("seed", seed.Raw),
		zap.String("root_domain", e.cfg.RootDomain),
		zap.Int("concurrency", e.cfg.Concurrency),
		zap.Int("max_depth", e.cfg.MaxDepth),
		zap.Int("max_pages", e.cfg.MaxPages),
	)
	e.emit(progress.Event{Stage: progress.StageRunStart, URL: seed.Raw})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One sink failure aborts the whole run: silently losing records would
	// defeat the crawl's purpose.
	var fatalMu sync.Mutex
	var fatalErr error
	fail := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
			cancel()
		}
		fatalMu.Unlock()
	}

	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup
	var inFlight atomic.Int64
	wake := make(chan struct{}, 1)

	dispatched := 0
	for runCtx.Err() == nil {
		if e.cfg.MaxPages > 0 && dispatched >= e.cfg.MaxPages {
			e.logger.Info("Page budget reached, draining", zap.Int("max_pages", e.cfg.MaxPages))
			break
		}

		entry, ok := e.frontier.Next()
		if !ok {
			if inFlight.Load() == 0 {
				// Workers offer their links before the in-flight count
				// drops, so a re-check here sees anything the last worker
				// queued between our Next and its decrement.
				if e.frontier.Len() == 0 {
					break
				}
				continue
			}
			// Queue is momentarily empty but in-flight fetches may still
			// offer links; wait for one to finish.
			select {
			case <-wake:
			case <-runCtx.Done():
			}
			continue
		}

		if e.cfg.DepthPolicy == DepthBoundsDispatch && e.cfg.MaxDepth > 0 && entry.Depth > e.cfg.MaxDepth {
			continue
		}

		if err := sem.Acquire(runCtx, 1); err != nil {
			break
		}
		dispatched++
		inFlight.Add(1)
		wg.Add(1)
		go func(entry Entry) {
			defer func() {
				sem.Release(1)
				inFlight.Add(-1)
				wg.Done()
				select {
				case wake <- struct{}{}:
				default:
				}
			}()
			e.process(runCtx, entry, fail)
		}(entry)
	}

	e.draining.Store(true)
	e.waitForWorkers(runCtx, &wg)

	fatalMu.Lock()
	runErr := fatalErr
	fatalMu.Unlock()

	summary := Summary{
		PagesFetched:      e.pagesFetched.Load(),
		PagesFailed:       e.pagesFailed.Load(),
		ProductsExtracted: e.products.Load(),
		LinksOffered:      e.linksOffered.Load(),
		LinksRejected:     e.linksRejected.Load(),
		Duration:          time.Since(start),
	}

	switch {
	case runErr != nil:
		e.emit(progress.Event{Stage: progress.StageRunError, Dur: summary.Duration, Note: runErr.Error()})
		return summary, runErr
	case ctx.Err() != nil:
		e.emit(progress.Event{Stage: progress.StageRunError, Dur: summary.Duration, Note: ctx.Err().Error()})
		return summary, fmt.Errorf("crawl canceled: %w", ctx.Err())
	default:
		e.emit(progress.Event{Stage: progress.StageRunDone, Dur: summary.Duration, Products: summary.ProductsExtracted})
		return summary, nil
	}
}

// waitForWorkers blocks until in-flight fetches finish. When the run context
// is already dead the wait is bounded by the configured grace period.
func (e *Engine) waitForWorkers(runCtx context.Context, wg *sync.WaitGroup) {
	if runCtx.Err() == nil {
		wg.Wait()
		return
	}
	grace := e.cfg.DrainGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		e.logger.Warn("Gave up waiting for in-flight fetches", zap.Duration("grace", grace))
	}
}

// process handles one dequeued entry: fetch (with retries), extract, stream
// products to the sink, and offer discovered links back to the frontier.
func (e *Engine) process(ctx context.Context, entry Entry, fail func(error)) {
	fetchStart := time.Now()
	page, err := e.fetchWithRetry(ctx, entry)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.pagesFailed.Add(1)
		PageFailures.Inc()
		e.logger.Warn("Page fetch failed",
			zap.String("url", entry.Raw),
			zap.Int("depth", entry.Depth),
			zap.Error(err),
		)
		e.emit(progress.Event{
			Stage: progress.StageFetchFail,
			URL:   entry.Raw,
			Depth: entry.Depth,
			Dur:   time.Since(fetchStart),
			Note:  err.Error(),
		})
		return
	}

	e.pagesFetched.Add(1)
	PagesFetched.Inc()
	e.emit(progress.Event{
		Stage:       progress.StageFetchDone,
		URL:         entry.Raw,
		Depth:       entry.Depth,
		StatusClass: progress.ClassifyStatus(page.StatusCode),
		Bytes:       page.ContentLength(),
		Dur:         time.Since(fetchStart),
	})

	records, links, err := e.extractor.Extract(page)
	if err != nil {
		// Malformed page structure: skip it, the crawl continues.
		e.logger.Warn("Extraction failed",
			zap.String("url", entry.Raw),
			zap.Error(err),
		)
		return
	}

	for _, record := range records {
		e.sinkMu.Lock()
		err := e.sink.Emit(ctx, record)
		e.sinkMu.Unlock()
		if err != nil {
			fail(fmt.Errorf("sink emit for %s: %w", entry.Raw, err))
			return
		}
		e.products.Add(1)
		ProductsExtracted.Inc()
	}
	if len(records) > 0 {
		e.emit(progress.Event{
			Stage:    progress.StageProducts,
			URL:      entry.Raw,
			Depth:    entry.Depth,
			Products: int64(len(records)),
		})
	}

	if e.draining.Load() {
		return
	}
	for _, link := range links {
		if e.frontier.Offer(link, entry.Depth) {
			e.linksOffered.Add(1)
		} else {
			e.linksRejected.Add(1)
		}
	}
}

// fetchWithRetry drives the per-URL attempt loop. The retry is transparent to
// the Frontier: the entry was dequeued once no matter how many attempts run.
func (e *Engine) fetchWithRetry(ctx context.Context, entry Entry) (Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := e.fetcher.Fetch(ctx, entry.Raw)
		if err == nil {
			return page, nil
		}
		if !e.retry.ShouldRetry(err, attempt) {
			return Page{}, err
		}
		FetchRetries.Inc()
		backoff := e.retry.Backoff(attempt)
		e.logger.Debug("Retrying fetch",
			zap.String("url", entry.Raw),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Page{}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	evt.RunID = e.runID
	evt.TS = time.Now().UTC()
	e.emitter.Emit(evt)
}
