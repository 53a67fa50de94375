// Package search feeds search-engine results into a crawl.
//
// The Scraper asks a Google-compatible endpoint for "site:<domain>" results,
// page by page, and pushes each result address onto a crawler.Producer.
// Result links have the form "/url?q=<address>&sa=..."; everything else on
// the result page is ignored.
//
// Search failures are returned to the caller and never retried. Result pages
// are requested 500ms apart.
package search
