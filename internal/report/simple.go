package report

import (
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkspider/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultTopN is how many hosts and domains the summaries list.
const defaultTopN = 10

// SimpleWriter outputs a plain-text summary. Counts are printed with
// thousands separators.
type SimpleWriter struct {
	baseWriter
	topN    int
	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopN sets how many hosts and domains are listed.
func WithTopN(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.topN = n
	}
}

// WithLanguage formats numbers for the given language tag.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		topN:       defaultTopN,
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SimpleWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder
	p := w.printer

	rule := strings.Repeat("=", 70)
	sb.WriteString(rule + "\n")
	sb.WriteString("                       LINKSPIDER CRAWL SUMMARY\n")
	sb.WriteString(rule + "\n\n")

	if summary.RunID > 0 {
		p.Fprintf(&sb, "Run:        #%d\n", summary.RunID)
	}
	p.Fprintf(&sb, "Started:    %s\n", summary.StartedAt.Format(time.DateTime))
	p.Fprintf(&sb, "Duration:   %s\n", summary.Duration().Round(time.Millisecond))
	p.Fprintf(&sb, "Stopped:    %s\n", stopText(summary.StopReason))
	p.Fprintf(&sb, "Seeds:      %d\n", len(summary.Seeds))
	if summary.SearchSite != "" {
		p.Fprintf(&sb, "Search:     site:%s\n", summary.SearchSite)
	}
	if len(summary.FilterPatterns) > 0 {
		p.Fprintf(&sb, "Filter:     %s\n", strings.Join(summary.FilterPatterns, ", "))
	}
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("-", 70) + "\n")
	p.Fprintf(&sb, "  Discovered: %d\n", summary.Emitted)
	p.Fprintf(&sb, "  Expanded:   %d\n", summary.Expanded)
	p.Fprintf(&sb, "  Failed:     %d\n", summary.Failed)
	p.Fprintf(&sb, "  Hosts:      %d\n", len(summary.Hosts))
	p.Fprintf(&sb, "  Domains:    %d\n", len(summary.Domains))
	sb.WriteString("\n")

	w.writeCounts(&sb, "TOP DOMAINS", summary.TopDomains(w.topN))
	w.writeCounts(&sb, "TOP HOSTS", summary.TopHosts(w.topN))

	sb.WriteString(rule + "\n")
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, title string, counts []model.Count) {
	if len(counts) == 0 {
		return
	}
	sb.WriteString(strings.Repeat("-", 70) + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70) + "\n")
	for _, c := range counts {
		w.printer.Fprintf(sb, "  %8d  %s\n", c.Count, c.Name)
	}
	sb.WriteString("\n")
}

func stopText(reason model.StopReason) string {
	switch reason {
	case model.StopCompleted:
		return "completed (frontier exhausted)"
	case model.StopLimit:
		return "result limit reached"
	case model.StopDeadline:
		return "duration elapsed (partial results)"
	case model.StopCancelled:
		return "interrupted (partial results)"
	default:
		return string(reason)
	}
}
