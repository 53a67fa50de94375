// Package download mirrors discovered addresses to disk with wget.
//
// Wget checks that an address answers a HEAD request with a 2xx status
// before running wget on it. Pool runs downloads in the background with a
// concurrency limit, so a slow mirror never stalls the crawl output.
package download
