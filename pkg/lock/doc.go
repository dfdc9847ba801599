// Package lock provides the advisory lock that keeps two runs for the same
// date from racing on the same artifacts.
//
// The lock is a small JSON file created with O_EXCL next to the raw
// download. It records the holder's PID, host and start time. A lock older
// than the configured stale threshold is assumed abandoned and broken once.
package lock
