// Package pipeline consumes the crawler's output sequence.
//
// Every address read from the output channel is passed through an ordered
// list of Steps: writing it out, tallying the run summary, recording it in
// the history database, handing it to the downloader. The pipeline is also
// where count-based termination lives: WithLimit stops consumption after n
// addresses and the caller cancels the crawl.
package pipeline
