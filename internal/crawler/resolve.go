package crawler

import (
	"net/url"
	"strings"
)

// stripTabNewline drops ASCII tab, LF and CR anywhere in a reference, as
// browsers do before parsing an href.
var stripTabNewline = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// Resolve joins href onto base using RFC 3986 reference resolution.
//
// Leading and trailing C0 controls and spaces are trimmed from href and tabs
// and newlines inside it are removed first, so hrefs wrapped across lines in
// the markup resolve like they do in a browser.
//
// base must be an absolute URL. When base does not parse, is not absolute,
// or href does not parse, href is returned verbatim; such an address simply
// fails later when it is fetched.
func Resolve(href, base string) string {
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	cleaned := stripTabNewline.Replace(strings.TrimFunc(href, isC0OrSpace))
	resolved, err := b.Parse(cleaned)
	if err != nil {
		return href
	}
	return resolved.String()
}

func isC0OrSpace(r rune) bool {
	return r <= ' '
}
