package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/nao1215/linkspider/internal/config"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects is the number of redirects followed before the last redirect
// response is returned as is.
const maxRedirects = 10

type clientOptions struct {
	timeout      time.Duration
	proxyAddress string
	sites        *config.File
}

// Option configures NewHTTPClient.
type Option func(*clientOptions)

// WithTimeout sets the overall per-request timeout, body read included.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithSOCKS5 routes every connection through the SOCKS5 proxy at addr ("host:port").
func WithSOCKS5(addr string) Option {
	return func(o *clientOptions) {
		o.proxyAddress = addr
	}
}

// WithSiteConfigs injects per-host cookies and headers from the config file.
func WithSiteConfigs(sites *config.File) Option {
	return func(o *clientOptions) {
		o.sites = sites
	}
}

// NewHTTPClient creates the HTTP client used for crawling.
//
// Connections are dialed directly unless WithSOCKS5 is given. Cookies set by
// crawled sites are kept in a jar partitioned by the public suffix list, so
// a crawl that wanders across many domains does not leak cookies between them.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	o := &clientOptions{timeout: config.DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if o.proxyAddress != "" {
		if !IsValidProxyAddress(o.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContextFunc(dialer)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = transport
	if o.sites != nil {
		rt = &headerInjectingTransport{base: transport, sites: o.sites}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   o.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// dialContextFunc adapts a proxy.Dialer to http.Transport.DialContext,
// using the context-aware path when the dialer supports it.
func dialContextFunc(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			go func() {
				if r := <-resultCh; r.conn != nil {
					_ = r.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// IsValidProxyAddress reports whether address is "host:port" with a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// headerInjectingTransport adds the configured cookie and headers for the
// request's host to every outgoing request, redirects included.
type headerInjectingTransport struct {
	base  http.RoundTripper
	sites *config.File
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	site := t.sites.GetSiteConfig(req.URL.Host)
	if site.Cookie == "" && len(site.Headers) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if site.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+site.Cookie)
		} else {
			clone.Header.Set("Cookie", site.Cookie)
		}
	}
	for key, value := range site.Headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
