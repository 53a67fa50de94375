package model

import (
	"slices"
	"testing"
	"time"
)

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("new summary defaults", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(nil, nil, time.Now())
		if s.Seeds == nil || s.FilterPatterns == nil {
			t.Error("expected non-nil slices for JSON output")
		}
		if s.StopReason != StopCompleted {
			t.Errorf("expected completed, got %s", s.StopReason)
		}
		if s.Duration() != 0 {
			t.Errorf("expected zero duration before finish, got %v", s.Duration())
		}
	})

	t.Run("tallies hosts and registrable domains", func(t *testing.T) {
		t.Parallel()

		s := NewSummary([]string{"https://example.com/"}, nil, time.Now())
		for _, addr := range []string{
			"https://example.com/",
			"https://Docs.Example.com/a",
			"https://docs.example.com:8443/b",
			"https://shop.example.co.uk/",
			"http://127.0.0.1/",
			"::broken",
		} {
			s.Add(addr)
		}

		if s.Emitted != 6 {
			t.Errorf("expected 6 emitted, got %d", s.Emitted)
		}
		if s.Hosts["docs.example.com"] != 2 {
			t.Errorf("expected 2 for docs.example.com, got %v", s.Hosts)
		}
		if s.Domains["example.com"] != 3 {
			t.Errorf("expected 3 for example.com, got %v", s.Domains)
		}
		if s.Domains["example.co.uk"] != 1 {
			t.Errorf("expected example.co.uk domain, got %v", s.Domains)
		}
		if s.Domains["127.0.0.1"] != 1 {
			t.Errorf("expected IP kept as-is, got %v", s.Domains)
		}
		if s.Hosts[invalidHost] != 1 {
			t.Errorf("expected invalid address tallied, got %v", s.Hosts)
		}
	})

	t.Run("top domains are ordered by count then name", func(t *testing.T) {
		t.Parallel()

		s := NewSummary(nil, nil, time.Now())
		s.Domains = map[string]int{"b.com": 2, "a.com": 2, "c.com": 5, "d.com": 1}

		got := s.TopDomains(3)
		want := []Count{{"c.com", 5}, {"a.com", 2}, {"b.com", 2}}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		if len(s.TopDomains(0)) != 4 {
			t.Error("expected all domains for n=0")
		}
	})

	t.Run("finish sets reason and duration", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		s := NewSummary(nil, nil, start)
		s.Finish(start.Add(90*time.Second), StopLimit)
		if s.StopReason != StopLimit {
			t.Errorf("expected limit, got %s", s.StopReason)
		}
		if s.Duration() != 90*time.Second {
			t.Errorf("expected 90s, got %v", s.Duration())
		}
	})
}

func TestRegistrableDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want string
	}{
		{"www.example.com", "example.com"},
		{"a.b.example.co.uk", "example.co.uk"},
		{"example.com", "example.com"},
		{"com", "com"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := RegistrableDomain(tt.host); got != tt.want {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestNewRunDiff(t *testing.T) {
	t.Parallel()

	a := []string{"https://x/3", "https://x/1", "https://x/2", "https://x/1"}
	b := []string{"https://x/2", "https://x/4", "https://x/3"}
	d := NewRunDiff(1, a, 2, b)

	if !slices.Equal(d.OnlyInA, []string{"https://x/1"}) {
		t.Errorf("unexpected OnlyInA: %v", d.OnlyInA)
	}
	if !slices.Equal(d.OnlyInB, []string{"https://x/4"}) {
		t.Errorf("unexpected OnlyInB: %v", d.OnlyInB)
	}
	if !slices.Equal(d.InBoth, []string{"https://x/2", "https://x/3"}) {
		t.Errorf("unexpected InBoth: %v", d.InBoth)
	}
	if !d.HasChanges() {
		t.Error("expected changes")
	}

	same := NewRunDiff(1, []string{"https://x/"}, 2, []string{"https://x/"})
	if same.HasChanges() {
		t.Error("expected no changes for identical runs")
	}
}
