package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultConcurrency is the number of fetches allowed in flight at once.
	// Crawling fans out quickly, so the frontier needs an explicit cap.
	DefaultConcurrency = 16

	// DefaultTimeout bounds a single fetch, including body read.
	DefaultTimeout = 30 * time.Second

	// DefaultSearchLimit is the maximum number of search results fed into
	// the frontier when --search-site is used.
	DefaultSearchLimit = 10

	// DefaultMaxBodySize limits how much of a response body is parsed.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultWgetConcurrency is the number of wget processes run at once.
	DefaultWgetConcurrency = 4

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap when --tor is given.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "linkspider"

	// DefaultUserAgent identifies linkspider in HTTP requests.
	DefaultUserAgent = "linkspider/1.0 (+https://github.com/nao1215/linkspider)"
)

// Config holds all options for a crawl run.
// It is populated from CLI flags and the optional config file, then passed
// down explicitly; there is no global configuration state.
type Config struct {
	// URLs are the seed addresses given on the command line.
	URLs []string

	// InputFile is a file with one seed address per line.
	InputFile string

	// FilterPatterns decide whether a discovered address is expanded.
	// An address is expanded when it contains any of the patterns.
	FilterPatterns []string

	// ExpandAll expands every discovered address regardless of FilterPatterns.
	ExpandAll bool

	// FollowPatterns and IgnorePatterns are glob patterns matched against the
	// URL path. They narrow expansion further; see crawler.PathFilter.
	FollowPatterns []string
	IgnorePatterns []string

	// SearchSite enables the search-result producer for the given site.
	SearchSite string

	// SearchLimit caps the number of search results pushed to the frontier.
	SearchLimit int

	// OutputPath receives discovered addresses, one per line.
	// Empty means stdout.
	OutputPath string

	// Wget runs wget on every discovered address that passes the filter.
	Wget bool

	// WgetConcurrency is the number of concurrent wget processes.
	WgetConcurrency int

	// Concurrency caps in-flight fetches. 0 means unlimited.
	Concurrency int

	// Timeout bounds each fetch.
	Timeout time.Duration

	// MaxResults stops the run after this many addresses. 0 means no limit.
	MaxResults int

	// Duration stops the run after this wall-clock time. 0 means no limit.
	Duration time.Duration

	// ProxyAddress routes all fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes fetches through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// ConfigFilePath is the path to the YAML config file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// SaveHistory records the run and its addresses in the history database.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	DBDir string

	// Summary prints a run summary to stderr when the crawl ends.
	Summary bool

	// JSONReport and MarkdownReport select the summary format.
	// They are mutually exclusive; plain text is the default.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stderr.
	ReportFile string

	// UserAgent is sent with every fetch.
	UserAgent string

	// MaxBodySize limits the bytes read from each response.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SearchLimit:       DefaultSearchLimit,
		WgetConcurrency:   DefaultWgetConcurrency,
		Concurrency:       DefaultConcurrency,
		Timeout:           DefaultTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SiteConfigs:       &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for linkspider.
// On Linux: ~/.local/share/linkspider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkspider.
// On Linux: ~/.config/linkspider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HasSeedSource reports whether the run has at least one way to obtain seeds.
func (c *Config) HasSeedSource() bool {
	return len(c.URLs) > 0 || c.InputFile != "" || c.SearchSite != ""
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	if !c.HasSeedSource() {
		return ErrNoSeeds
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	if c.WgetConcurrency <= 0 {
		return ErrInvalidWgetConcurrency
	}

	if c.SearchSite != "" && c.SearchLimit <= 0 {
		return ErrInvalidSearchLimit
	}

	if c.MaxResults < 0 {
		return ErrInvalidMaxResults
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	return nil
}
