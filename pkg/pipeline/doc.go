// Package pipeline runs the dated fetch, parse and persist sequence.
//
// A run computes today's date key, takes the per-date lock, fetches the raw
// document (skipped when it already exists), and stops early when the JSON
// output for the date is already present. Otherwise it parses the raw file,
// writes the JSON output and, when configured, exports the entries to
// MongoDB. The first failure aborts the run and is returned to the caller.
package pipeline
