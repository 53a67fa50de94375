package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/nao1215/linkspider/internal/config"
	"golang.org/x/net/html/charset"
)

// FetchResult is the outcome of fetching one address.
type FetchResult struct {
	// Address is the address that was fetched.
	Address string

	// Children are the links found on the page, absolute, in document order.
	// Empty when the fetch failed.
	Children []string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the reason the fetch failed, if it did. The Frontier never
	// acts on it beyond counting failures.
	Err error
}

// Failed reports whether the fetch produced no usable page.
func (r FetchResult) Failed() bool {
	return r.Err != nil
}

// Fetcher retrieves one page and extracts its links.
//
// Implementations must not return until the fetch is finished and must
// absorb every failure into the result; the Frontier has no error path.
type Fetcher interface {
	Fetch(ctx context.Context, address string) FetchResult
}

// HTTPFetcher is the Fetcher used for real crawls.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize caps how many body bytes are read and parsed.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// NewHTTPFetcher creates a fetcher around client. The client carries the
// timeout, proxy and per-host headers; see the transport package.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      client,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs one GET request without retry. The body is parsed for links
// whatever the status code or content type; error pages link to real pages
// often enough to be worth reading.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string) FetchResult {
	result := FetchResult{Address: address, Children: []string{}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		result.Err = fmt.Errorf("invalid request: %w", err)
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		result.Err = fmt.Errorf("failed to read body: %w", err)
		return result
	}

	result.Children = ExtractLinks(decodeBody(body, resp.Header.Get("Content-Type")), address)
	return result
}

// decodeBody converts body to UTF-8 from its declared or sniffed charset.
// Undecodable bodies are parsed as-is.
func decodeBody(body []byte, contentType string) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}
