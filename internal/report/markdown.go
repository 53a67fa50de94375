package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkspider/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries as GitHub-flavored Markdown, with a
// mermaid pie chart of the busiest domains.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("linkspider Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Started", summary.StartedAt.Format(time.DateTime)},
		{"Duration", summary.Duration().Round(time.Millisecond).String()},
		{"Stopped", stopText(summary.StopReason)},
		{"Seeds", strconv.Itoa(len(summary.Seeds))},
	}
	if summary.RunID > 0 {
		rows = append([][]string{{"Run", "#" + strconv.FormatInt(summary.RunID, 10)}}, rows...)
	}
	if summary.SearchSite != "" {
		rows = append(rows, []string{"Search", "`site:" + summary.SearchSite + "`"})
	}
	if len(summary.FilterPatterns) > 0 {
		rows = append(rows, []string{"Filter", "`" + strings.Join(summary.FilterPatterns, "`, `") + "`"})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Discovered", strconv.FormatInt(summary.Emitted, 10)},
			{"Expanded", strconv.FormatInt(summary.Expanded, 10)},
			{"Failed", strconv.FormatInt(summary.Failed, 10)},
			{"Hosts", strconv.Itoa(len(summary.Hosts))},
			{"Domains", strconv.Itoa(len(summary.Domains))},
		},
	})
	md.PlainText("")
	w.writeAlert(md, summary)

	domains := summary.TopDomains(defaultTopN)
	md.H2("Top Domains")
	md.PlainText("")
	if len(domains) == 0 {
		md.PlainText("No addresses were discovered.")
		md.PlainText("")
	} else {
		w.writePieChart(md, domains)
		md.Table(countTable("Domain", domains))
		md.PlainText("")
	}

	if hosts := summary.TopHosts(defaultTopN); len(hosts) > 0 {
		md.H2("Top Hosts")
		md.PlainText("")
		md.Table(countTable("Host", hosts))
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [linkspider](https://github.com/nao1215/linkspider)*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, domains []model.Count) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Discovered addresses by domain"),
		piechart.WithShowData(true),
	)
	for _, d := range domains {
		chart.LabelAndIntValue(d.Name, uint64(d.Count)) //nolint:gosec // counts are never negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch {
	case summary.StopReason == model.StopCancelled || summary.StopReason == model.StopDeadline:
		md.Warningf("The crawl was stopped early (%s); results are partial.", summary.StopReason)
	case summary.Emitted > 0 && summary.Failed == summary.Emitted:
		md.Cautionf("All %d fetches failed. Check connectivity, proxy settings and seed addresses.", summary.Failed)
	case summary.Failed > 0:
		md.Importantf("%d of %d fetches failed.", summary.Failed, summary.Emitted)
	default:
		md.Tip("All fetches succeeded.")
	}
	md.PlainText("")
}

func countTable(label string, counts []model.Count) markdown.TableSet {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{"`" + c.Name + "`", strconv.Itoa(c.Count)}
	}
	return markdown.TableSet{Header: []string{label, "Addresses"}, Rows: rows}
}
