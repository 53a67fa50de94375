// Package database provides the SQLite-backed run history of linkspider.
//
// A run row is written when a crawl starts and updated when it finishes;
// every emitted address is appended to the discoveries table in emission
// order. The history is an output record: it is read by the history
// command, never by the crawler.
//
// The database is a single file (linkspider.db) in the XDG data directory,
// opened through the CGO-free modernc.org/sqlite driver with WAL enabled so
// that the history command can read while a crawl is writing.
package database
