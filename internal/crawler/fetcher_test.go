package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<a href="/a">a</a><a href="b">b</a>`))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<a href="/home">home</a>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`<a href="/from-text">x</a>`))
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "/caf\xe9" is "/café" in ISO-8859-1
		_, _ = w.Write([]byte("<a href=\"/caf\xe9\">x</a>"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="/early">e</a>` + strings.Repeat(" ", 4096) + `<a href="/late">l</a>`))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="/` + r.Header.Get("User-Agent") + `">ua</a>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	fetcher := NewHTTPFetcher(srv.Client())

	t.Run("extracts resolved children", func(t *testing.T) {
		t.Parallel()

		res := fetcher.Fetch(context.Background(), srv.URL+"/page")
		want := []string{srv.URL + "/a", srv.URL + "/b"}
		if !slices.Equal(res.Children, want) {
			t.Errorf("got %v, want %v", res.Children, want)
		}
		if res.Failed() || res.StatusCode != http.StatusOK {
			t.Errorf("unexpected failure: status=%d err=%v", res.StatusCode, res.Err)
		}
	})

	t.Run("error status pages are parsed", func(t *testing.T) {
		t.Parallel()

		res := fetcher.Fetch(context.Background(), srv.URL+"/missing")
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", res.StatusCode)
		}
		if !slices.Equal(res.Children, []string{srv.URL + "/home"}) {
			t.Errorf("unexpected children: %v", res.Children)
		}
	})

	t.Run("non-HTML content types are parsed", func(t *testing.T) {
		t.Parallel()

		res := fetcher.Fetch(context.Background(), srv.URL+"/plain")
		if !slices.Equal(res.Children, []string{srv.URL + "/from-text"}) {
			t.Errorf("unexpected children: %v", res.Children)
		}
	})

	t.Run("declared charset is decoded", func(t *testing.T) {
		t.Parallel()

		res := fetcher.Fetch(context.Background(), srv.URL+"/latin1")
		want := srv.URL + "/caf%C3%A9"
		if !slices.Equal(res.Children, []string{want}) {
			t.Errorf("got %v, want [%s]", res.Children, want)
		}
	})

	t.Run("body is capped", func(t *testing.T) {
		t.Parallel()

		small := NewHTTPFetcher(srv.Client(), WithMaxBodySize(1024))
		res := small.Fetch(context.Background(), srv.URL+"/big")
		if !slices.Equal(res.Children, []string{srv.URL + "/early"}) {
			t.Errorf("unexpected children: %v", res.Children)
		}
	})

	t.Run("user agent is sent", func(t *testing.T) {
		t.Parallel()

		custom := NewHTTPFetcher(srv.Client(), WithUserAgent("probe"))
		res := custom.Fetch(context.Background(), srv.URL+"/ua")
		if !slices.Equal(res.Children, []string{srv.URL + "/probe"}) {
			t.Errorf("unexpected children: %v", res.Children)
		}
	})

	t.Run("unreachable address yields no children", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		addr := dead.URL + "/"
		dead.Close()

		res := fetcher.Fetch(context.Background(), addr)
		if !res.Failed() {
			t.Error("expected failure")
		}
		if res.Address != addr || len(res.Children) != 0 {
			t.Errorf("expected (%s, []), got (%s, %v)", addr, res.Address, res.Children)
		}
	})

	t.Run("invalid address yields no children", func(t *testing.T) {
		t.Parallel()

		res := fetcher.Fetch(context.Background(), "::not a url")
		if !res.Failed() || len(res.Children) != 0 {
			t.Errorf("expected failed empty result, got %+v", res)
		}
	})

	t.Run("cancelled context fails the fetch", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		res := fetcher.Fetch(ctx, srv.URL+"/slow")
		if !res.Failed() {
			t.Error("expected failure on deadline")
		}
	})
}
