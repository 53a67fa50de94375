package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// LineWriter writes discovered addresses, one per line. Output is buffered;
// call Flush or Close when done.
type LineWriter struct {
	buf       *bufio.Writer
	closer    io.Closer
	autoFlush bool
}

// LineWriterOption configures a LineWriter.
type LineWriterOption func(*LineWriter)

// WithAutoFlush flushes after every line, for output watched live.
func WithAutoFlush() LineWriterOption {
	return func(w *LineWriter) {
		w.autoFlush = true
	}
}

// NewLineWriter writes to output. Close flushes but does not close output.
func NewLineWriter(output io.Writer, opts ...LineWriterOption) *LineWriter {
	w := &LineWriter{buf: bufio.NewWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CreateLineWriter truncates or creates the file at path and writes to it.
func CreateLineWriter(path string) (*LineWriter, error) {
	f, err := os.Create(path) //nolint:gosec // output path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &LineWriter{buf: bufio.NewWriter(f), closer: f}, nil
}

// WriteLine writes addr followed by a newline.
func (w *LineWriter) WriteLine(addr string) error {
	if _, err := w.buf.WriteString(addr); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	if w.autoFlush {
		return w.buf.Flush()
	}
	return nil
}

// Flush writes buffered lines to the underlying writer.
func (w *LineWriter) Flush() error {
	return w.buf.Flush()
}

// Close flushes and closes the file if the writer owns one.
func (w *LineWriter) Close() error {
	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
