package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
)

// ErrUnreachable is returned when the HEAD check does not answer 2xx.
var ErrUnreachable = errors.New("address is not reachable")

// DefaultCommand is the downloader executable.
const DefaultCommand = "wget"

// Runner executes name with args. The default runs the process and returns
// its combined output with any error.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Wget downloads addresses recursively with wget.
type Wget struct {
	client  *http.Client
	command string
	dir     string
	runner  Runner
	logger  *slog.Logger
}

// WgetOption configures a Wget.
type WgetOption func(*Wget)

// WithCommand sets the downloader executable.
func WithCommand(command string) WgetOption {
	return func(w *Wget) {
		w.command = command
	}
}

// WithDir sets the working directory wget writes into.
func WithDir(dir string) WgetOption {
	return func(w *Wget) {
		w.dir = dir
	}
}

// WithRunner replaces process execution, for tests.
func WithRunner(r Runner) WgetOption {
	return func(w *Wget) {
		w.runner = r
	}
}

// WithWgetLogger sets the logger.
func WithWgetLogger(logger *slog.Logger) WgetOption {
	return func(w *Wget) {
		w.logger = logger
	}
}

// NewWget creates a Wget that validates addresses with client.
func NewWget(client *http.Client, opts ...WgetOption) *Wget {
	w := &Wget{
		client:  client,
		command: DefaultCommand,
		runner:  runCommand,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Args returns the wget arguments used for addr.
func Args(addr string) []string {
	return []string{"--no-check-certificate", "-erobots=off", "-r", addr}
}

// Download checks addr and mirrors it.
func (w *Wget) Download(ctx context.Context, addr string) error {
	if err := w.check(ctx, addr); err != nil {
		return err
	}

	w.logger.Debug("downloading", "url", addr, "command", w.command)
	out, err := w.runner(ctx, w.dir, w.command, Args(addr)...)
	if err != nil {
		if tail := lastLine(out); tail != "" {
			return fmt.Errorf("%s %s: %w: %s", w.command, addr, err, tail)
		}
		return fmt.Errorf("%s %s: %w", w.command, addr, err)
	}
	return nil
}

func (w *Wget) check(ctx context.Context, addr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, addr, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, addr, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, addr, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrUnreachable, addr, resp.StatusCode)
	}
	return nil
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // arguments are fixed apart from the URL
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

func lastLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
