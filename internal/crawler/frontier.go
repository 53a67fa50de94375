package crawler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nao1215/linkspider/internal/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Frontier runs crawls. A Frontier may be reused, but runs one crawl at a
// time; Stats describes the most recent one.
type Frontier struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
	observer    func(FetchResult)
	stats       counters
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithConcurrency caps the number of fetches in flight. 0 means unlimited.
// Negative values are treated as 0.
func WithConcurrency(n int) FrontierOption {
	return func(f *Frontier) {
		f.concurrency = max(n, 0)
	}
}

// WithFrontierLogger sets the logger. Admissions and completions are logged
// at debug level.
func WithFrontierLogger(logger *slog.Logger) FrontierOption {
	return func(f *Frontier) {
		f.logger = logger
	}
}

// WithObserver registers a function called from the coordinator with every
// completed FetchResult, before the address is emitted. It must not block.
func WithObserver(fn func(FetchResult)) FrontierOption {
	return func(f *Frontier) {
		f.observer = fn
	}
}

// NewFrontier creates a Frontier that fetches pages with fetcher.
func NewFrontier(fetcher Fetcher, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		fetcher:     fetcher,
		concurrency: config.DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stats is a snapshot of crawl counters.
type Stats struct {
	// Admitted is the number of distinct addresses admitted.
	Admitted int64
	// InFlight is the number of fetches currently running.
	InFlight int64
	// Queued is the number of admitted addresses waiting for a fetch slot.
	Queued int64
	// Emitted is the number of addresses placed on the output channel.
	Emitted int64
	// Expanded is the number of emitted addresses whose children were admitted.
	Expanded int64
	// Failed is the number of fetches that produced no page.
	Failed int64
}

type counters struct {
	admitted atomic.Int64
	inFlight atomic.Int64
	queued   atomic.Int64
	emitted  atomic.Int64
	expanded atomic.Int64
	failed   atomic.Int64
}

func (c *counters) reset() {
	c.admitted.Store(0)
	c.inFlight.Store(0)
	c.queued.Store(0)
	c.emitted.Store(0)
	c.expanded.Store(0)
	c.failed.Store(0)
}

// Stats returns the live counters of the current or most recent crawl.
func (f *Frontier) Stats() Stats {
	return Stats{
		Admitted: f.stats.admitted.Load(),
		InFlight: f.stats.inFlight.Load(),
		Queued:   f.stats.queued.Load(),
		Emitted:  f.stats.emitted.Load(),
		Expanded: f.stats.expanded.Load(),
		Failed:   f.stats.failed.Load(),
	}
}

// Crawl starts a crawl fed by in and returns the output channel.
//
// Every address read from in, and every child of an address for which filter
// returns true, is admitted at most once and emitted exactly once, in fetch
// completion order. Failed fetches are emitted too. A nil filter expands
// nothing.
//
// The output channel is closed when in is closed and no fetch is running or
// waiting. If in is never closed the crawl never ends on its own. Cancelling
// ctx stops the crawl early; addresses whose fetch had not completed are then
// dropped. The caller must drain the output channel or cancel ctx.
func (f *Frontier) Crawl(ctx context.Context, in <-chan string, filter Filter) <-chan string {
	if filter == nil {
		filter = ExpandNone()
	}
	f.stats.reset()

	out := make(chan string)
	r := &crawlRun{
		frontier: f,
		filter:   filter,
		visited:  newVisitedSet(),
		results:  make(chan FetchResult),
		out:      out,
	}
	if f.concurrency > 0 {
		r.gate = semaphore.NewWeighted(int64(f.concurrency))
	}
	go r.loop(ctx, in)
	return out
}

// CrawlSeeds crawls from a fixed list of seeds.
func (f *Frontier) CrawlSeeds(ctx context.Context, seeds []string, filter Filter) <-chan string {
	in := make(chan string, len(seeds))
	for _, s := range seeds {
		in <- s
	}
	close(in)
	return f.Crawl(ctx, in, filter)
}

// visitedSet records every address admitted during one run.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// Add inserts addr and reports whether it was absent.
func (v *visitedSet) Add(addr string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[addr]; ok {
		return false
	}
	v.seen[addr] = struct{}{}
	return true
}

// crawlRun is the coordinator state of a single crawl. Only loop and the
// methods it calls touch it, except the fetch goroutines, which only send
// on results.
type crawlRun struct {
	frontier *Frontier
	filter   Filter
	visited  *visitedSet
	gate     *semaphore.Weighted // nil means unlimited
	tasks    errgroup.Group
	results  chan FetchResult
	out      chan<- string
	backlog  []string
	inFlight int
}

func (r *crawlRun) loop(ctx context.Context, in <-chan string) {
	defer close(r.out)
	defer r.tasks.Wait() //nolint:errcheck // fetch tasks never return errors

	logger := r.frontier.logger
	for in != nil || r.inFlight > 0 || len(r.backlog) > 0 {
		select {
		case <-ctx.Done():
			logger.Debug("crawl cancelled", "in_flight", r.inFlight, "queued", len(r.backlog))
			return
		case addr, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			r.admit(ctx, addr)
		case res := <-r.results:
			if !r.complete(ctx, res) {
				return
			}
		}
	}
	logger.Debug("crawl finished", "emitted", r.frontier.stats.emitted.Load())
}

// admit performs the check-and-insert and dispatches the fetch, or parks the
// address in the backlog when every slot is taken.
func (r *crawlRun) admit(ctx context.Context, addr string) {
	if !r.visited.Add(addr) {
		return
	}
	r.frontier.stats.admitted.Add(1)
	r.frontier.logger.Debug("admitted", "url", addr)

	if r.gate != nil && (len(r.backlog) > 0 || !r.gate.TryAcquire(1)) {
		r.backlog = append(r.backlog, addr)
		r.frontier.stats.queued.Add(1)
		return
	}
	r.dispatch(ctx, addr)
}

// dispatch starts a fetch. The caller holds a gate slot if there is a gate.
func (r *crawlRun) dispatch(ctx context.Context, addr string) {
	r.inFlight++
	r.frontier.stats.inFlight.Add(1)
	fetcher := r.frontier.fetcher
	r.tasks.Go(func() error {
		res := fetcher.Fetch(ctx, addr)
		select {
		case r.results <- res:
		case <-ctx.Done():
		}
		return nil
	})
}

// complete handles a finished fetch: release its slot, emit, then expand.
// It returns false if ctx was cancelled while emitting.
func (r *crawlRun) complete(ctx context.Context, res FetchResult) bool {
	f := r.frontier
	r.inFlight--
	f.stats.inFlight.Add(-1)
	if r.gate != nil {
		r.gate.Release(1)
	}
	if res.Failed() {
		f.stats.failed.Add(1)
		f.logger.Debug("fetch failed", "url", res.Address, "error", res.Err)
	}
	if f.observer != nil {
		f.observer(res)
	}

	select {
	case r.out <- res.Address:
		f.stats.emitted.Add(1)
	case <-ctx.Done():
		return false
	}

	if r.filter(res.Address) {
		f.stats.expanded.Add(1)
		for _, child := range res.Children {
			r.admit(ctx, child)
		}
	}

	r.drainBacklog(ctx)
	return true
}

// drainBacklog dispatches queued addresses in FIFO order while slots are free.
func (r *crawlRun) drainBacklog(ctx context.Context) {
	for len(r.backlog) > 0 && r.gate.TryAcquire(1) {
		addr := r.backlog[0]
		r.backlog = r.backlog[1:]
		r.frontier.stats.queued.Add(-1)
		r.dispatch(ctx, addr)
	}
}
