// Package scheduler fires delayed downloads. A single goroutine owns a
// min-heap of jobs ordered by fire time and sleeps until the earliest one
// is due, waking at least once a minute so clock steps are noticed.
//
// Jobs live in memory only; anything still queued when the process stops
// is lost.
package scheduler
