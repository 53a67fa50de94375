package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errUnreachable = errors.New("unreachable")

// graphFetcher serves a fixed link graph. Addresses missing from the graph
// fail like an unreachable host.
type graphFetcher struct {
	graph map[string][]string
	delay time.Duration

	mu      sync.Mutex
	fetched map[string]int

	running atomic.Int64
	peak    atomic.Int64
}

func newGraphFetcher(graph map[string][]string) *graphFetcher {
	return &graphFetcher{graph: graph, fetched: make(map[string]int)}
}

func (g *graphFetcher) Fetch(ctx context.Context, address string) FetchResult {
	n := g.running.Add(1)
	defer g.running.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	g.mu.Lock()
	g.fetched[address]++
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return FetchResult{Address: address, Children: []string{}, Err: ctx.Err()}
		}
	}

	children, ok := g.graph[address]
	if !ok {
		return FetchResult{Address: address, Children: []string{}, Err: errUnreachable}
	}
	return FetchResult{Address: address, Children: children, StatusCode: http.StatusOK}
}

func (g *graphFetcher) fetchCount(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetched[address]
}

func collect(t *testing.T, out <-chan string) []string {
	t.Helper()
	var got []string
	timeout := time.After(10 * time.Second)
	for {
		select {
		case addr, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, addr)
		case <-timeout:
			t.Fatalf("crawl did not terminate; emitted so far: %v", got)
		}
	}
}

func sorted(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

func TestFrontierCrawl(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"https://a/":  {"https://a/1", "https://a/2", "https://b/"},
		"https://a/1": {"https://a/", "https://a/2", "https://a/3"},
		"https://a/2": {"https://a/1"},
		"https://a/3": {},
		"https://b/":  {"https://b/1"},
		"https://b/1": {},
	}

	t.Run("every reachable address is emitted exactly once", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(graph)
		f := NewFrontier(fetcher)
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/"}, ExpandAll()))

		want := []string{"https://a/", "https://a/1", "https://a/2", "https://a/3", "https://b/", "https://b/1"}
		if !slices.Equal(sorted(got), want) {
			t.Errorf("got %v, want %v", sorted(got), want)
		}
		for _, addr := range want {
			if n := fetcher.fetchCount(addr); n != 1 {
				t.Errorf("%s fetched %d times", addr, n)
			}
		}
	})

	t.Run("filter false admits no children", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(newGraphFetcher(graph))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/"}, ExpandNone()))
		if !slices.Equal(got, []string{"https://a/"}) {
			t.Errorf("expected only the seed, got %v", got)
		}
	})

	t.Run("substring filter bounds the crawl", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(newGraphFetcher(graph))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/"}, MatchAny("https://a/")))

		// b/ is emitted as a child of a/, but b/1 is never reached.
		want := []string{"https://a/", "https://a/1", "https://a/2", "https://a/3", "https://b/"}
		if !slices.Equal(sorted(got), want) {
			t.Errorf("got %v, want %v", sorted(got), want)
		}
	})

	t.Run("filter is called once per emitted address", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		calls := make(map[string]int)
		filter := func(addr string) bool {
			mu.Lock()
			defer mu.Unlock()
			calls[addr]++
			return true
		}

		f := NewFrontier(newGraphFetcher(graph))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/"}, filter))

		mu.Lock()
		defer mu.Unlock()
		if len(calls) != len(got) {
			t.Errorf("filter saw %d addresses, %d emitted", len(calls), len(got))
		}
		for addr, n := range calls {
			if n != 1 {
				t.Errorf("filter called %d times for %s", n, addr)
			}
		}
	})

	t.Run("duplicate seeds are admitted once", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(graph)
		f := NewFrontier(fetcher)
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/3", "https://a/3"}, ExpandAll()))
		if !slices.Equal(got, []string{"https://a/3"}) {
			t.Errorf("expected one emission, got %v", got)
		}
		if n := fetcher.fetchCount("https://a/3"); n != 1 {
			t.Errorf("expected one fetch, got %d", n)
		}
		if s := f.Stats(); s.Admitted != 1 || s.Emitted != 1 {
			t.Errorf("unexpected stats: %+v", s)
		}
	})

	t.Run("unreachable address is emitted once", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(newGraphFetcher(graph))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://down/"}, ExpandAll()))
		if !slices.Equal(got, []string{"https://down/"}) {
			t.Errorf("expected failed address to be emitted once, got %v", got)
		}
		if s := f.Stats(); s.Failed != 1 {
			t.Errorf("expected 1 failure, got %+v", s)
		}
	})

	t.Run("empty closed input terminates", func(t *testing.T) {
		t.Parallel()

		in := make(chan string)
		close(in)
		got := collect(t, NewFrontier(newGraphFetcher(graph)).Crawl(context.Background(), in, ExpandAll()))
		if len(got) != 0 {
			t.Errorf("expected no output, got %v", got)
		}
	})

	t.Run("no seeds terminates", func(t *testing.T) {
		t.Parallel()

		got := collect(t, NewFrontier(newGraphFetcher(graph)).CrawlSeeds(context.Background(), nil, ExpandAll()))
		if len(got) != 0 {
			t.Errorf("expected no output, got %v", got)
		}
	})

	t.Run("nil filter expands nothing", func(t *testing.T) {
		t.Parallel()

		got := collect(t, NewFrontier(newGraphFetcher(graph)).CrawlSeeds(context.Background(), []string{"https://a/"}, nil))
		if !slices.Equal(got, []string{"https://a/"}) {
			t.Errorf("expected only the seed, got %v", got)
		}
	})
}

func TestFrontierConcurrency(t *testing.T) {
	t.Parallel()

	// A star: one hub linking to 30 leaves.
	graph := map[string][]string{"https://hub/": {}}
	for i := range 30 {
		leaf := fmt.Sprintf("https://hub/%d", i)
		graph["https://hub/"] = append(graph["https://hub/"], leaf)
		graph[leaf] = []string{}
	}

	t.Run("in-flight fetches never exceed the cap", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(graph)
		fetcher.delay = 10 * time.Millisecond
		f := NewFrontier(fetcher, WithConcurrency(3))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://hub/"}, ExpandAll()))

		if len(got) != 31 {
			t.Errorf("expected 31 addresses, got %d", len(got))
		}
		if peak := fetcher.peak.Load(); peak > 3 {
			t.Errorf("peak concurrency %d exceeds cap 3", peak)
		}
		s := f.Stats()
		if s.InFlight != 0 || s.Queued != 0 {
			t.Errorf("expected drained counters, got %+v", s)
		}
		if s.Admitted != 31 || s.Emitted != 31 || s.Expanded != 31 {
			t.Errorf("unexpected stats: %+v", s)
		}
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(graph)
		fetcher.delay = 50 * time.Millisecond
		f := NewFrontier(fetcher, WithConcurrency(0))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://hub/"}, ExpandAll()))

		if len(got) != 31 {
			t.Errorf("expected 31 addresses, got %d", len(got))
		}
		if peak := fetcher.peak.Load(); peak <= 3 {
			t.Errorf("expected leaves fetched in parallel, peak was %d", peak)
		}
	})

	t.Run("concurrency of one", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(graph)
		f := NewFrontier(fetcher, WithConcurrency(1))
		got := collect(t, f.CrawlSeeds(context.Background(), []string{"https://hub/"}, ExpandAll()))
		if len(got) != 31 {
			t.Errorf("expected 31 addresses, got %d", len(got))
		}
		if peak := fetcher.peak.Load(); peak != 1 {
			t.Errorf("expected serial fetches, peak was %d", peak)
		}
	})
}

func TestFrontierInput(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"https://a/": {"https://shared/"},
		"https://b/": {"https://shared/"},
		"https://shared/": {},
	}

	t.Run("crawl waits for open input", func(t *testing.T) {
		t.Parallel()

		in := make(chan string)
		out := NewFrontier(newGraphFetcher(graph)).Crawl(context.Background(), in, ExpandAll())

		in <- "https://a/"
		seen := map[string]bool{<-out: true, <-out: true}
		if !seen["https://a/"] || !seen["https://shared/"] {
			t.Fatalf("unexpected first emissions: %v", seen)
		}

		select {
		case addr, ok := <-out:
			t.Fatalf("expected crawl to wait for input, got %q (open=%v)", addr, ok)
		case <-time.After(50 * time.Millisecond):
		}

		in <- "https://b/"
		close(in)
		rest := collect(t, out)
		if !slices.Equal(rest, []string{"https://b/"}) {
			t.Errorf("expected only b/ after shared/ was visited, got %v", rest)
		}
	})

	t.Run("several producers", func(t *testing.T) {
		t.Parallel()

		input := NewInput(0)
		p1 := input.NewProducer()
		p2 := input.NewProducer()
		input.Seal()

		out := NewFrontier(newGraphFetcher(graph)).Crawl(context.Background(), input.C(), ExpandAll())

		go func() {
			defer p1.Close()
			p1.Push(context.Background(), "https://a/")
		}()
		go func() {
			defer p2.Close()
			p2.Push(context.Background(), "https://b/")
			p2.Push(context.Background(), "https://a/")
		}()

		got := collect(t, out)
		want := []string{"https://a/", "https://b/", "https://shared/"}
		if !slices.Equal(sorted(got), want) {
			t.Errorf("got %v, want %v", sorted(got), want)
		}
	})
}

func TestFrontierCancel(t *testing.T) {
	t.Parallel()

	t.Run("cancel closes the output", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		in := make(chan string)
		out := NewFrontier(newGraphFetcher(nil)).Crawl(ctx, in, ExpandAll())

		cancel()
		got := collect(t, out)
		if len(got) != 0 {
			t.Errorf("expected no output, got %v", got)
		}
	})

	t.Run("cancel while consumer is not reading", func(t *testing.T) {
		t.Parallel()

		graph := map[string][]string{"https://a/": {"https://a/1", "https://a/2"}, "https://a/1": {}, "https://a/2": {}}
		ctx, cancel := context.WithCancel(context.Background())
		out := NewFrontier(newGraphFetcher(graph)).CrawlSeeds(ctx, []string{"https://a/"}, ExpandAll())

		if first := <-out; first != "https://a/" {
			t.Fatalf("expected seed first, got %q", first)
		}
		cancel()
		got := collect(t, out)
		if len(got) > 2 {
			t.Errorf("unexpected emissions after cancel: %v", got)
		}
	})

	t.Run("cancel interrupts slow fetches", func(t *testing.T) {
		t.Parallel()

		fetcher := newGraphFetcher(map[string][]string{"https://slow/": {}})
		fetcher.delay = time.Minute
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		collect(t, NewFrontier(fetcher).CrawlSeeds(ctx, []string{"https://slow/"}, ExpandAll()))
		if time.Since(start) > 5*time.Second {
			t.Error("crawl did not stop promptly on cancel")
		}
	})
}

func TestFrontierObserver(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{"https://a/": {"https://gone/"}}
	var mu sync.Mutex
	results := make(map[string]FetchResult)
	f := NewFrontier(newGraphFetcher(graph), WithObserver(func(r FetchResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Address] = r
	}))

	collect(t, f.CrawlSeeds(context.Background(), []string{"https://a/"}, ExpandAll()))

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 2 {
		t.Fatalf("expected 2 observed results, got %d", len(results))
	}
	if results["https://a/"].Failed() {
		t.Error("expected a/ to succeed")
	}
	if !errors.Is(results["https://gone/"].Err, errUnreachable) {
		t.Errorf("expected gone/ to fail, got %v", results["https://gone/"].Err)
	}
}

func TestFrontierWithHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="/docs/">docs</a><a href="/blog/">blog</a>`))
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="intro">intro</a><a href="/">home</a>`))
	})
	mux.HandleFunc("/docs/intro", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="/docs/missing">broken</a>`))
	})
	mux.HandleFunc("/blog/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="/blog/post">post</a>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewFrontier(NewHTTPFetcher(srv.Client()), WithConcurrency(2))
	filter := All(MatchAny(srv.URL), PathFilter(nil, []string{"/blog/*"}))
	got := collect(t, f.CrawlSeeds(context.Background(), []string{srv.URL + "/"}, filter))

	want := []string{
		srv.URL + "/",
		srv.URL + "/blog/",
		srv.URL + "/docs/",
		srv.URL + "/docs/intro",
		srv.URL + "/docs/missing",
	}
	if !slices.Equal(sorted(got), want) {
		t.Errorf("got %v, want %v", sorted(got), want)
	}
}
