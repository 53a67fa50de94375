package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/nao1215/linkspider/internal/crawler"
	"golang.org/x/net/html"
)

const (
	// DefaultEndpoint is the search URL queried by default.
	DefaultEndpoint = "https://www.google.com/search"

	// GooglebotUserAgent is sent with search requests; the result markup
	// served to it carries plain /url?q= links.
	GooglebotUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

	// DefaultPageDelay separates consecutive result page requests.
	DefaultPageDelay = 500 * time.Millisecond

	resultsPerPage = 10
	maxPageSize    = 5 * 1024 * 1024
)

// ErrUnexpectedStatus is returned when the search endpoint answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected search response status")

var resultLinkPattern = regexp.MustCompile(`/url\?q=(.*?)&sa=`)

// Scraper pages through site search results.
type Scraper struct {
	client    *http.Client
	endpoint  string
	userAgent string
	delay     time.Duration
	logger    *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithEndpoint replaces the search URL. Query parameters q and start are set
// on it for every page.
func WithEndpoint(endpoint string) Option {
	return func(s *Scraper) {
		s.endpoint = endpoint
	}
}

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithPageDelay sets the pause between result pages.
func WithPageDelay(d time.Duration) Option {
	return func(s *Scraper) {
		s.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: 30 * time.Second},
		endpoint:  DefaultEndpoint,
		userAgent: GooglebotUserAgent,
		delay:     DefaultPageDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// streamFailureLimit is the number of consecutive failed pages after which
// Stream gives up.
const streamFailureLimit = 3

// Run pushes up to limit result addresses for site onto producer. It stops
// early when a result page has no results and returns the first page error.
// producer is closed when Run returns, whatever the outcome.
func (s *Scraper) Run(ctx context.Context, site string, limit int, producer *crawler.Producer) error {
	return s.collect(ctx, site, limit, producer, 0)
}

// Stream returns the results for site on a channel that closes after limit
// results, an empty page or cancellation. A page that fails is logged and
// skipped, and the next page is requested; the channel also closes after
// several failed pages in a row.
func (s *Scraper) Stream(ctx context.Context, site string, limit int) <-chan string {
	input := crawler.NewInput(0)
	producer := input.NewProducer()
	input.Seal()

	go func() {
		if err := s.collect(ctx, site, limit, producer, streamFailureLimit); err != nil {
			s.logger.Debug("search stream ended", "site", site, "error", err)
		}
	}()
	return input.C()
}

// collect walks the result pages. Up to tolerated consecutive page failures
// are skipped; the next one is returned.
func (s *Scraper) collect(ctx context.Context, site string, limit int, producer *crawler.Producer, tolerated int) error {
	defer producer.Close()

	pushed, failures := 0, 0
	for start := 0; pushed < limit; start += resultsPerPage {
		if start > 0 {
			if err := s.wait(ctx); err != nil {
				return err
			}
		}

		results, err := s.page(ctx, site, start)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures > tolerated {
				return err
			}
			s.logger.Warn("skipping search page", "site", site, "start", start, "error", err)
			continue
		}
		failures = 0
		s.logger.Debug("search page", "site", site, "start", start, "results", len(results))
		if len(results) == 0 {
			return nil
		}

		for _, addr := range results {
			if pushed >= limit {
				break
			}
			if !producer.Push(ctx, addr) {
				return ctx.Err()
			}
			pushed++
		}
	}
	return nil
}

func (s *Scraper) wait(ctx context.Context) error {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// page fetches one result page and returns the result addresses on it.
func (s *Scraper) page(ctx context.Context, site string, start int) ([]string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", "site:"+site)
	q.Set("start", strconv.Itoa(start))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return ParseResults(io.LimitReader(resp.Body, maxPageSize))
}

// ParseResults extracts result addresses from a search result page, in page
// order. Captured addresses are percent-decoded; a capture that does not
// decode is returned as-is.
func ParseResults(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if m := resultLinkPattern.FindStringSubmatch(getAttr(n, "href")); m != nil {
				results = append(results, decodeResult(m[1]))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func decodeResult(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
