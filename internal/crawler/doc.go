// Package crawler discovers reachable pages starting from a frontier of seed
// addresses.
//
// # Architecture
//
// The Frontier owns the whole crawl state. A single coordinator goroutine
// receives candidate addresses from an input channel, admits each address at
// most once, dispatches fetches through a concurrency gate and emits every
// fetched address on the output channel in completion order. Collaborators
// talk to the Frontier only through those two channels.
//
//	seed loader ─┐                      ┌─> output consumers
//	search ──────┼─> Input ─> Frontier ─┤
//	             │      ^        │      └─> (writer, history, downloads)
//	             │      └── children of expanded pages
//
// # Components
//
//   - Resolve: joins an href onto the page it was found on
//   - HTTPFetcher: GETs one page and extracts its links in document order
//   - Frontier: admission, dispatch, emission and termination
//   - Input / Producer: a channel with several producers that closes once all are done
//   - Filter: decides per emitted address whether its children are admitted
//
// # Addresses
//
// Addresses are compared byte for byte. No normalization is applied, so
// "https://h/a" and "https://h/a/" are two different pages to the Frontier.
//
// # Usage
//
//	frontier := crawler.NewFrontier(crawler.NewHTTPFetcher(client), crawler.WithConcurrency(8))
//	for addr := range frontier.CrawlSeeds(ctx, seeds, crawler.MatchAny("example.com")) {
//		fmt.Println(addr)
//	}
package crawler
