package crawler

import (
	"net/url"
	"path"
	"strings"
)

// Filter decides whether the children of an emitted address are admitted.
// The Frontier calls it once per emitted address and never looks inside.
type Filter func(addr string) bool

// MatchAny expands addresses containing at least one of patterns as a
// substring. With no patterns it expands nothing.
func MatchAny(patterns ...string) Filter {
	return func(addr string) bool {
		for _, p := range patterns {
			if strings.Contains(addr, p) {
				return true
			}
		}
		return false
	}
}

// ExpandAll expands every address. Crawls with it are bounded only by the
// reachable web, so pair it with a limit or deadline.
func ExpandAll() Filter {
	return func(string) bool { return true }
}

// ExpandNone expands nothing; only the seeds are fetched.
func ExpandNone() Filter {
	return func(string) bool { return false }
}

// All expands an address only when every filter does. All() expands everything.
func All(filters ...Filter) Filter {
	return func(addr string) bool {
		for _, f := range filters {
			if !f(addr) {
				return false
			}
		}
		return true
	}
}

// PathFilter matches the URL path against glob patterns.
//
// An address whose path matches any ignore pattern is rejected. When follow
// patterns are given, the path must also match at least one of them.
// Addresses that do not parse are rejected.
func PathFilter(follow, ignore []string) Filter {
	return func(addr string) bool {
		u, err := url.Parse(addr)
		if err != nil {
			return false
		}
		urlPath := u.Path
		if urlPath == "" {
			urlPath = "/"
		}

		for _, pattern := range ignore {
			if matchPattern(pattern, urlPath) {
				return false
			}
		}
		if len(follow) == 0 {
			return true
		}
		for _, pattern := range follow {
			if matchPattern(pattern, urlPath) {
				return true
			}
		}
		return false
	}
}

// matchPattern reports whether urlPath matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - "?" matches one character, as in path.Match
//   - a pattern without "/" is also tried against the last path segment
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(urlPath, ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, urlPath); err == nil && matched {
		return true
	}

	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(urlPath)); err == nil && matched {
			return true
		}
	}
	return false
}
