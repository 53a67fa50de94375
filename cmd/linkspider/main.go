// Package main provides the entry point for the linkspider CLI.
//
// linkspider is a concurrent web crawler. It fetches seed addresses, extracts
// the links of every page it fetches, follows the links of pages that match
// a filter, and prints every address it reaches exactly once.
//
// Usage:
//
//	linkspider crawl https://example.com -f example.com
//	linkspider crawl --input-file seeds.txt --expand-all -n 1000
//	linkspider crawl --search-site example.com --save
//
// See --help for all available options.
package main

// main is the entry point for linkspider.
func main() {
	Execute()
}
