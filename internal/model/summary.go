package model

import (
	"cmp"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// StopReason records why a crawl ended.
type StopReason string

const (
	// StopCompleted means the frontier ran out of work.
	StopCompleted StopReason = "completed"
	// StopLimit means the result limit was reached.
	StopLimit StopReason = "limit"
	// StopDeadline means the wall-clock duration elapsed.
	StopDeadline StopReason = "deadline"
	// StopCancelled means the user interrupted the crawl.
	StopCancelled StopReason = "cancelled"
)

// invalidHost is the tally key for addresses without a usable host.
const invalidHost = "(invalid)"

// Summary describes one crawl run.
type Summary struct {
	// RunID is the history run id, or 0 when history is off.
	RunID int64 `json:"run_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Seeds          []string `json:"seeds"`
	FilterPatterns []string `json:"filter_patterns"`
	SearchSite     string   `json:"search_site,omitempty"`

	// Emitted counts addresses written to the output.
	Emitted int64 `json:"emitted"`
	// Expanded counts addresses whose children were followed.
	Expanded int64 `json:"expanded"`
	// Failed counts addresses whose fetch produced no page.
	Failed int64 `json:"failed"`

	// Hosts tallies emitted addresses per host name.
	Hosts map[string]int `json:"hosts"`
	// Domains tallies emitted addresses per registrable domain (eTLD+1).
	Domains map[string]int `json:"domains"`

	StopReason StopReason `json:"stop_reason"`
}

// NewSummary starts a summary for a run beginning at startedAt.
func NewSummary(seeds, filterPatterns []string, startedAt time.Time) *Summary {
	return &Summary{
		StartedAt:      startedAt,
		Seeds:          nonNil(seeds),
		FilterPatterns: nonNil(filterPatterns),
		Hosts:          make(map[string]int),
		Domains:        make(map[string]int),
		StopReason:     StopCompleted,
	}
}

// Add records one emitted address.
func (s *Summary) Add(addr string) {
	s.Emitted++
	host := HostOf(addr)
	s.Hosts[host]++
	s.Domains[RegistrableDomain(host)]++
}

// Finish marks the run as ended.
func (s *Summary) Finish(at time.Time, reason StopReason) {
	s.FinishedAt = at
	s.StopReason = reason
}

// Duration returns how long the run took, or 0 if it has not finished.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Count is a name with a tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopHosts returns up to n hosts, most frequent first. n <= 0 returns all.
func (s *Summary) TopHosts(n int) []Count {
	return top(s.Hosts, n)
}

// TopDomains returns up to n registrable domains, most frequent first.
// n <= 0 returns all.
func (s *Summary) TopDomains(n int) []Count {
	return top(s.Domains, n)
}

func top(tally map[string]int, n int) []Count {
	counts := make([]Count, 0, len(tally))
	for name, c := range tally {
		counts = append(counts, Count{Name: name, Count: c})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// HostOf returns the lower-cased host name of addr without port.
func HostOf(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.Hostname() == "" {
		return invalidHost
	}
	return strings.ToLower(u.Hostname())
}

// RegistrableDomain returns the eTLD+1 of host ("docs.example.co.uk" ->
// "example.co.uk"). IP addresses, bare suffixes and single labels are
// returned unchanged.
func RegistrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
