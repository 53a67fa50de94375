// Package model defines the data structures shared by the report, pipeline
// and database packages.
//
//   - Summary: counters and host/domain tallies for one crawl run
//   - RunDiff: the address-level difference between two recorded runs
//
// The models are plain structs with JSON tags so they can be written by the
// report package as-is.
package model
