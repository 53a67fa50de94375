// Package report writes crawl output and run summaries.
//
//   - LineWriter: the discovered-address stream, one address per line
//   - SimpleWriter: human-readable summary for the terminal
//   - JSONWriter: summary as JSON for tool integration
//   - MarkdownWriter: summary as Markdown with a domain pie chart
//   - WriteDiff: the difference between two recorded runs
//
// Summary writers implement Writer and can be combined with MultiWriter.
package report
