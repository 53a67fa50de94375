package crawler

import (
	"io"

	"golang.org/x/net/html"
)

// ExtractLinks parses an HTML document and returns the href of every anchor
// element, resolved against base, in document order. Duplicates are kept.
// Other elements carrying URLs (link, iframe, area, img) are not followed.
//
// x/net/html recovers from malformed markup, so a parse error only happens
// when reading r fails; the links found up to that point are still returned.
func ExtractLinks(r io.Reader, base string) []string {
	links := make([]string, 0)
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					links = append(links, Resolve(string(val), base))
					break
				}
				if !more {
					break
				}
			}
		}
	}
}
