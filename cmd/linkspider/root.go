package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/linkspider/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkspider.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkspider",
		Short: "Concurrent web crawler that streams every discovered address",
		Long: `linkspider crawls the web from a set of seed addresses.

Every fetched page is parsed for links. Links of pages that match a filter
pattern are crawled too, and every address reached is printed exactly once,
in the order its fetch completed.

Seeds can be given on the command line, read from a file, or taken from
search engine results for a site. Fetches can be routed through a SOCKS5
proxy or an embedded Tor daemon to crawl .onion services.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getPersistentBool retrieves a root persistent flag from the command, or
// from the root when the command's flags have not been merged yet.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getPersistentBool(cmd, "verbose")
}

// setupLogger creates the sanitizing logger selected by --verbose and
// --log-json. Logs always go to stderr; stdout carries the addresses.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	if getPersistentBool(cmd, "log-json") {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}
