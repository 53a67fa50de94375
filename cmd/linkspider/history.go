package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkspider/internal/config"
	"github.com/nao1215/linkspider/internal/database"
	"github.com/nao1215/linkspider/internal/model"
	"github.com/nao1215/linkspider/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List crawl runs recorded with --save",
		Long: `History shows crawl runs recorded with 'linkspider crawl --save'.

Without a subcommand it lists the runs, newest first.

Examples:
  # List the 20 most recent runs
  linkspider history

  # List every run as JSON
  linkspider history --all --json

  # Print the addresses discovered by run 3
  linkspider history show 3

  # Compare what runs 3 and 4 discovered
  linkspider history compare 3 4 --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryListCmd,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
	cmd.Flags().IntP("limit", "l", 20, "Number of runs to list")
	cmd.Flags().BoolP("all", "a", false, "List every run")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryCompareCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the addresses discovered by a run, in discovery order",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output the run and its addresses as JSON")
	return cmd
}

func newHistoryCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <run-id-a> <run-id-b>",
		Short: "Compare the addresses discovered by two runs",
		Long: `Compare prints the addresses only one of two runs discovered.
Lines starting with "-" were found only by the first run, lines starting
with "+" only by the second.`,
		Args: cobra.ExactArgs(2),
		RunE: runHistoryCompareCmd,
	}
	cmd.Flags().BoolP("json", "j", false, "Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison result in Markdown format")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	return cmd
}

// openHistory opens the existing history database named by --db-dir.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseRunID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q: must be a positive integer", arg)
	}
	return id, nil
}

func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	var runs []database.Run
	if all || limit <= 0 {
		runs, err = db.ListRuns(ctx)
	} else {
		runs, err = db.LatestRuns(ctx, limit)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, runs)
	}
	printRuns(out, runs)
	return nil
}

// printRuns writes the run listing table.
func printRuns(out io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'linkspider crawl --save' to record a run.")
		return
	}

	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %8s  %-10s  %s\n", "ID", "Started", "Duration", "Found", "Stopped", "Seeds")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))
	for _, r := range runs {
		duration, stopped := "-", "running?"
		if r.Finished() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			stopped = string(r.StopReason)
		}
		fmt.Fprintf(out, "  %-6d  %-19s  %-10s  %8d  %-10s  %s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			duration,
			r.Emitted,
			stopped,
			seedsText(r),
		)
	}
	fmt.Fprintln(out, "\nUse 'linkspider history show <id>' to print the addresses of a run.")
}

// seedsText shortens a run's seed list for the listing.
func seedsText(r database.Run) string {
	var parts []string
	if r.SearchSite != "" {
		parts = append(parts, "site:"+r.SearchSite)
	}
	switch len(r.Seeds) {
	case 0:
	case 1:
		parts = append(parts, r.Seeds[0])
	default:
		parts = append(parts, fmt.Sprintf("%s (+%d more)", r.Seeds[0], len(r.Seeds)-1))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	addrs, err := db.RunAddresses(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		run, err := db.GetRun(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(out, struct {
			*database.Run
			Addresses []string `json:"addresses"`
		}{Run: run, Addresses: addrs})
	}

	w := report.NewLineWriter(out)
	for _, a := range addrs {
		if err := w.WriteLine(a); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runHistoryCompareCmd(cmd *cobra.Command, args []string) error {
	idA, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	idB, err := parseRunID(args[1])
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	diff, err := compareRuns(cmd.Context(), db, idA, idB)
	if err != nil {
		return err
	}

	format := report.FormatText
	switch {
	case asJSON:
		format = report.FormatJSON
	case asMarkdown:
		format = report.FormatMarkdown
	}
	return report.WriteDiff(cmd.OutOrStdout(), diff, format)
}

func compareRuns(ctx context.Context, db *database.HistoryDB, idA, idB int64) (*model.RunDiff, error) {
	a, err := db.RunAddresses(ctx, idA)
	if err != nil {
		return nil, err
	}
	b, err := db.RunAddresses(ctx, idB)
	if err != nil {
		return nil, err
	}
	return model.NewRunDiff(idA, a, idB, b), nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
