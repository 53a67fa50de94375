package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkspider/internal/model"
)

// JSONWriter outputs summaries as JSON.
type JSONWriter struct {
	baseWriter
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonSummary adds derived fields to the summary.
type jsonSummary struct {
	*model.Summary
	DurationMS int64         `json:"duration_ms"`
	TopDomains []model.Count `json:"top_domains"`
}

// Write outputs the summary.
func (w *JSONWriter) Write(summary *model.Summary) (int, error) {
	return w.writeJSON(jsonSummary{
		Summary:    summary,
		DurationMS: summary.Duration().Milliseconds(),
		TopDomains: summary.TopDomains(defaultTopN),
	})
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
