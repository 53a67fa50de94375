package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
)

// recordingRunner captures invocations instead of running processes.
type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	out   []byte
	err   error
}

func (r *recordingRunner) run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{dir, name}, args...))
	return r.out, r.err
}

func newStatusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWgetDownload(t *testing.T) {
	t.Parallel()

	t.Run("runs wget for reachable address", func(t *testing.T) {
		t.Parallel()

		server := newStatusServer(t, http.StatusOK)
		runner := &recordingRunner{}
		w := NewWget(server.Client(), WithRunner(runner.run), WithDir("/tmp/mirror"))

		if err := w.Download(context.Background(), server.URL+"/a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runner.calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(runner.calls))
		}
		want := []string{"/tmp/mirror", "wget", "--no-check-certificate", "-erobots=off", "-r", server.URL + "/a"}
		if !slices.Equal(runner.calls[0], want) {
			t.Errorf("expected %v, got %v", want, runner.calls[0])
		}
	})

	t.Run("skips non-2xx address", func(t *testing.T) {
		t.Parallel()

		server := newStatusServer(t, http.StatusNotFound)
		runner := &recordingRunner{}
		w := NewWget(server.Client(), WithRunner(runner.run))

		err := w.Download(context.Background(), server.URL)
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("expected ErrUnreachable, got %v", err)
		}
		if !strings.Contains(err.Error(), "404") {
			t.Errorf("expected status in error: %v", err)
		}
		if len(runner.calls) != 0 {
			t.Error("wget should not run for unreachable address")
		}
	})

	t.Run("skips address that cannot be fetched", func(t *testing.T) {
		t.Parallel()

		runner := &recordingRunner{}
		w := NewWget(http.DefaultClient, WithRunner(runner.run))
		if err := w.Download(context.Background(), "::not a url"); !errors.Is(err, ErrUnreachable) {
			t.Errorf("expected ErrUnreachable, got %v", err)
		}
	})

	t.Run("reports command failure with last output line", func(t *testing.T) {
		t.Parallel()

		server := newStatusServer(t, http.StatusNoContent)
		runner := &recordingRunner{out: []byte("Resolving...\nERROR 500: Internal Server Error.\n"), err: errors.New("exit status 8")}
		w := NewWget(server.Client(), WithRunner(runner.run), WithCommand("mywget"))

		err := w.Download(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "mywget") || !strings.Contains(err.Error(), "ERROR 500") {
			t.Errorf("unexpected error: %v", err)
		}
		if runner.calls[0][1] != "mywget" {
			t.Errorf("expected custom command, got %v", runner.calls[0])
		}
	})
}

func TestLastLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "one", want: "one"},
		{in: "one\ntwo\n\n", want: "two"},
	}
	for _, tt := range tests {
		if got := lastLine([]byte(tt.in)); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
