package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/nao1215/linkspider/internal/config"
	"github.com/nao1215/linkspider/internal/crawler"
	"github.com/nao1215/linkspider/internal/database"
	"github.com/nao1215/linkspider/internal/download"
	"github.com/nao1215/linkspider/internal/model"
	"github.com/nao1215/linkspider/internal/pipeline"
	"github.com/nao1215/linkspider/internal/report"
	"github.com/nao1215/linkspider/internal/search"
	"github.com/nao1215/linkspider/internal/seed"
	"github.com/nao1215/linkspider/internal/transport"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl from seed addresses and print every address reached",
		Long: `Crawl fetches the seed addresses and every link reachable through pages
that pass the filter, printing each address exactly once as its fetch completes.

An address is expanded (its links are followed) when it contains one of the
--filter-pattern substrings, or always with --expand-all. --follow-pattern and
--ignore-pattern narrow expansion further by URL path. Every admitted address
is printed, expanded or not, including addresses that could not be fetched.

The crawl ends when no work is left, after --max-results addresses, after
--duration, or on Ctrl-C.

Examples:
  # Crawl a site, following links on its own pages only
  linkspider crawl https://example.com -f example.com

  # Seeds from a file, first 500 addresses, written to a file
  linkspider crawl -i seeds.txt --expand-all -n 500 -o found.txt

  # Seed from search results and keep a history of the run
  linkspider crawl --search-site example.com -f example.com --save --summary

  # Crawl an onion service through an embedded Tor daemon
  linkspider crawl --tor http://exampleonion.onion -f exampleonion.onion

  # Mirror every expanded page with wget
  linkspider crawl https://example.com -f example.com --wget`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Seeds
	cmd.Flags().StringArrayP("url", "u", nil, "Seed address (repeatable); positional arguments are seeds too")
	cmd.Flags().StringP("input-file", "i", "", "File with one seed address per line")
	cmd.Flags().String("search-site", "", "Seed with search engine results for site:<domain>")
	cmd.Flags().Int("search-limit", config.DefaultSearchLimit, "Maximum number of search results used as seeds")

	// Traversal
	cmd.Flags().StringArrayP("filter-pattern", "f", nil, "Expand addresses containing this substring (repeatable)")
	cmd.Flags().Bool("expand-all", false, "Expand every address")
	cmd.Flags().StringArray("follow-pattern", nil, "Only expand addresses whose path matches this glob (repeatable)")
	cmd.Flags().StringArray("ignore-pattern", nil, "Never expand addresses whose path matches this glob (repeatable)")

	// Output
	cmd.Flags().StringP("output", "o", "", "Write addresses to this file instead of stdout")
	cmd.Flags().Bool("wget", false, "Mirror expanded addresses with wget")
	cmd.Flags().Int("wget-concurrency", config.DefaultWgetConcurrency, "Number of concurrent wget processes")

	// Limits
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency, "Maximum fetches in flight (0 for unlimited)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each fetch")
	cmd.Flags().IntP("max-results", "n", 0, "Stop after this many addresses (0 for no limit)")
	cmd.Flags().DurationP("duration", "d", 0, "Stop after this long (0 for no limit)")

	// Transport
	cmd.Flags().String("proxy", "", "Route fetches through the SOCKS5 proxy at host:port")
	cmd.Flags().Bool("tor", false, "Start an embedded Tor daemon and route fetches through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")

	// Configuration and history
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .linkspider in current or home directory)")
	cmd.Flags().Bool("save", false, "Record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	// Summary
	cmd.Flags().Bool("summary", false, "Print a run summary to stderr when the crawl ends")
	cmd.Flags().BoolP("json", "j", false, "Write the summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Write the summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "", "Write the summary to this file (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping crawl...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	urls, err := flags.GetStringArray("url")
	if err != nil {
		return nil, err
	}
	cfg.URLs = append(urls, args...)

	if cfg.InputFile, err = flags.GetString("input-file"); err != nil {
		return nil, err
	}
	if cfg.SearchSite, err = flags.GetString("search-site"); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = flags.GetInt("search-limit"); err != nil {
		return nil, err
	}
	if cfg.FilterPatterns, err = flags.GetStringArray("filter-pattern"); err != nil {
		return nil, err
	}
	if cfg.ExpandAll, err = flags.GetBool("expand-all"); err != nil {
		return nil, err
	}
	if cfg.FollowPatterns, err = flags.GetStringArray("follow-pattern"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringArray("ignore-pattern"); err != nil {
		return nil, err
	}
	if cfg.OutputPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Wget, err = flags.GetBool("wget"); err != nil {
		return nil, err
	}
	if cfg.WgetConcurrency, err = flags.GetInt("wget-concurrency"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxResults, err = flags.GetInt("max-results"); err != nil {
		return nil, err
	}
	if cfg.Duration, err = flags.GetDuration("duration"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.SaveHistory, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.Summary, err = flags.GetBool("summary"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSiteConfigs reads the config file into cfg.SiteConfigs. A missing file
// is an error only when its path was given explicitly.
func loadSiteConfigs(cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	sites, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.SiteConfigs = sites
	return nil
}

// runCrawl executes the crawl and writes addresses to stdout (or the output
// file) and the summary to stderr (or the report file).
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	seeds, err := collectSeeds(cfg)
	if err != nil {
		return err
	}

	if onion := transport.OnionSeeds(seeds); len(onion) > 0 && cfg.ProxyAddress == "" && !cfg.UseTor {
		fmt.Fprintf(stderr, "Warning: %d .onion seed(s) will not resolve without --tor or --proxy\n", len(onion))
	}

	client, stopTor, err := newHTTPClient(ctx, cfg, logger, stderr)
	if err != nil {
		return err
	}
	defer stopTor()

	patterns := filterPatterns(cfg)
	summary := model.NewSummary(seeds, patterns, time.Now())
	summary.SearchSite = cfg.SearchSite

	var history *database.HistoryDB
	if cfg.SaveHistory {
		history, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer history.Close()

		summary.RunID, err = history.BeginRun(ctx, summary)
		if err != nil {
			return err
		}
		logger.Debug("history run started", "run_id", summary.RunID, "db", history.Path())
	}

	lines, err := openLineWriter(cfg, stdout)
	if err != nil {
		return err
	}

	crawlErr := crawl(ctx, cfg, logger, client, seeds, summary, history, lines)
	if err := lines.Close(); err != nil && crawlErr == nil {
		crawlErr = fmt.Errorf("failed to write output: %w", err)
	}

	if history != nil {
		if err := history.FinishRun(context.WithoutCancel(ctx), summary.RunID, summary); err != nil {
			return err
		}
	}

	if err := outputSummary(cfg, summary, stderr); err != nil {
		return err
	}
	return crawlErr
}

// crawl wires the producers, the frontier and the output pipeline together
// and runs them until the crawl stops. It fills in summary and returns only
// pipeline errors; stopping early is not an error.
func crawl(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	client *http.Client,
	seeds []string,
	summary *model.Summary,
	history *database.HistoryDB,
	lines *report.LineWriter,
) error {
	crawlCtx, cancelCrawl := context.WithCancel(ctx)
	defer cancelCrawl()
	if cfg.Duration > 0 {
		var cancelTimeout context.CancelFunc
		crawlCtx, cancelTimeout = context.WithTimeout(crawlCtx, cfg.Duration)
		defer cancelTimeout()
	}

	filter := buildFilter(cfg)

	input := crawler.NewInput(len(seeds))
	seedProducer := input.NewProducer()
	for _, s := range seeds {
		seedProducer.Push(crawlCtx, s)
	}
	seedProducer.Close()

	if cfg.SearchSite != "" {
		scraper := search.New(search.WithClient(client), search.WithLogger(logger))
		searchProducer := input.NewProducer()
		go func() {
			if err := scraper.Run(crawlCtx, cfg.SearchSite, cfg.SearchLimit, searchProducer); err != nil && crawlCtx.Err() == nil {
				logger.Warn("search scraping stopped", "site", cfg.SearchSite, "error", err)
			}
		}()
	}
	input.Seal()

	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)
	frontier := crawler.NewFrontier(fetcher,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithFrontierLogger(logger),
	)

	var recorder pipeline.Recorder
	if history != nil {
		recorder = history
	}
	p, pool := newOutputPipeline(ctx, cfg, logger, client, filter, summary, recorder, lines)

	out := frontier.Crawl(crawlCtx, input.C(), filter)
	consumed, runErr := p.Run(crawlCtx, out)

	// Stop the frontier and wait for its fetches to wind down.
	cancelCrawl()
	for range out {
	}

	reason := stopReason(ctx, p.LimitReached(consumed), runErr)
	stats := frontier.Stats()
	summary.Expanded = stats.Expanded
	summary.Failed = stats.Failed
	summary.Finish(time.Now(), reason)
	logger.Debug("crawl stopped", "reason", reason, "emitted", consumed, "admitted", stats.Admitted)

	if pool != nil {
		if err := pool.Wait(); err != nil {
			logger.Warn("some downloads failed", "error", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	return nil
}

// newOutputPipeline builds the steps every emitted address goes through.
// recorder may be nil. The returned pool is nil unless --wget is set.
//
// Step failures are logged and do not stop the crawl output. A failing
// write still fails the command, because the line writer keeps its first
// error and reports it when closed.
func newOutputPipeline(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	client *http.Client,
	filter crawler.Filter,
	summary *model.Summary,
	recorder pipeline.Recorder,
	lines *report.LineWriter,
) (*pipeline.Pipeline, *download.Pool) {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithLimit(cfg.MaxResults),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(pipeline.NewWriteStep(lines), pipeline.NewSummaryStep(summary))
	if recorder != nil {
		p.AddStep(pipeline.NewRecordStep(recorder, summary.RunID))
	}
	var pool *download.Pool
	if cfg.Wget {
		wget := download.NewWget(client, download.WithWgetLogger(logger))
		pool = download.NewPool(wget, download.WithLimit(cfg.WgetConcurrency), download.WithPoolLogger(logger))
		p.AddStep(pipeline.NewDownloadStep(ctx, filter, pool))
	}
	logger.Debug("output pipeline ready", "steps", p.StepNames())
	return p, pool
}

// stopReason classifies why a crawl ended. ctx is the command context, which
// is only cancelled by a signal.
func stopReason(ctx context.Context, limitReached bool, runErr error) model.StopReason {
	switch {
	case limitReached:
		return model.StopLimit
	case ctx.Err() != nil:
		return model.StopCancelled
	case errors.Is(runErr, context.DeadlineExceeded):
		return model.StopDeadline
	case runErr != nil:
		return model.StopCancelled
	default:
		return model.StopCompleted
	}
}

// collectSeeds merges command-line seeds with the input file, in order.
func collectSeeds(cfg *config.Config) ([]string, error) {
	seeds := slices.Clone(cfg.URLs)
	if cfg.InputFile != "" {
		fromFile, err := seed.LoadFile(cfg.InputFile)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, fromFile...)
	}
	return seeds, nil
}

// filterPatterns merges --filter-pattern with the config file defaults.
func filterPatterns(cfg *config.Config) []string {
	patterns := slices.Clone(cfg.FilterPatterns)
	if cfg.SiteConfigs != nil {
		for _, p := range cfg.SiteConfigs.Defaults.FilterPatterns {
			if !slices.Contains(patterns, p) {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// buildFilter composes the traversal filter: the substring patterns (or
// expand-all), narrowed by the path patterns from flags and from the config
// entry of the address's host.
func buildFilter(cfg *config.Config) crawler.Filter {
	base := crawler.MatchAny(filterPatterns(cfg)...)
	if cfg.ExpandAll {
		base = crawler.ExpandAll()
	}

	sites := cfg.SiteConfigs
	if sites == nil {
		sites = &config.File{}
	}
	return func(addr string) bool {
		if !base(addr) {
			return false
		}
		site := sites.GetSiteConfig(model.HostOf(addr))
		follow := append(slices.Clone(cfg.FollowPatterns), site.FollowPatterns...)
		ignore := append(slices.Clone(cfg.IgnorePatterns), site.IgnorePatterns...)
		if len(follow) == 0 && len(ignore) == 0 {
			return true
		}
		return crawler.PathFilter(follow, ignore)(addr)
	}
}

// newHTTPClient builds the crawl client, starting the embedded Tor daemon or
// checking the SOCKS5 proxy when asked to. The returned stop function is
// always safe to call.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) (*http.Client, func(), error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithSiteConfigs(cfg.SiteConfigs),
	}
	stop := func() {}

	switch {
	case cfg.ProxyAddress != "":
		if !transport.IsValidProxyAddress(cfg.ProxyAddress) {
			return nil, stop, fmt.Errorf("%w: %s", transport.ErrInvalidProxyAddress, cfg.ProxyAddress)
		}
		if status := transport.CheckSOCKS5(ctx, cfg.ProxyAddress); status != transport.ProxyStatusOK {
			return nil, stop, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Err())
		}
		logger.Debug("SOCKS5 proxy verified", "address", cfg.ProxyAddress)
		opts = append(opts, transport.WithSOCKS5(cfg.ProxyAddress))

	case cfg.UseTor:
		fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
		fmt.Fprintln(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.")

		tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return nil, stop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop = func() {
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		opt, err := tor.ClientOption()
		if err != nil {
			stop()
			return nil, func() {}, err
		}
		fmt.Fprintf(stderr, "Embedded Tor daemon started (SOCKS proxy: %s)\n", tor.SocksAddr())
		opts = append(opts, opt)
	}

	client, err := transport.NewHTTPClient(opts...)
	if err != nil {
		stop()
		return nil, func() {}, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return client, stop, nil
}

// openLineWriter writes to the output file if one is configured, otherwise
// to stdout with a flush per line so the stream can be piped.
func openLineWriter(cfg *config.Config, stdout io.Writer) (*report.LineWriter, error) {
	if cfg.OutputPath == "" {
		return report.NewLineWriter(stdout, report.WithAutoFlush()), nil
	}
	if err := ensureParentDir(cfg.OutputPath); err != nil {
		return nil, err
	}
	return report.CreateLineWriter(cfg.OutputPath)
}

// wantsSummary reports whether any summary output was requested.
func wantsSummary(cfg *config.Config) bool {
	return cfg.Summary || cfg.JSONReport || cfg.MarkdownReport || cfg.ReportFile != ""
}

// outputSummary writes the run summary in the requested format.
func outputSummary(cfg *config.Config, summary *model.Summary, stderr io.Writer) error {
	if !wantsSummary(cfg) {
		return nil
	}

	output := stderr
	if cfg.ReportFile != "" {
		if err := ensureParentDir(cfg.ReportFile); err != nil {
			return err
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := report.NewWriter(output, reportFormat(cfg)).Write(summary)
	return err
}

func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
