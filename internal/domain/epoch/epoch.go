// Package epoch maps wall-clock time onto discrete day indexes.
//
// A day index is a pure function of time: floor((now - origin) / dayLength).
// Nothing here mutates; day closure elsewhere is derived by comparing a day
// index against the current one.
package epoch

import (
	"time"
)

// Default epoch configuration constants.
const (
	// DefaultDayLength is the fixed epoch window.
	DefaultDayLength = 86400 * time.Second
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithOrigin sets the epoch origin (unix seconds). Day 0 starts here.
func WithOrigin(origin int64) Option {
	return func(r *Resolver) {
		r.origin = origin
	}
}

// WithDayLength sets the epoch window length.
func WithDayLength(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.dayLength = int64(d / time.Second)
		}
	}
}

// Resolver resolves timestamps to day indexes and day windows.
type Resolver struct {
	origin    int64 // unix seconds
	dayLength int64 // seconds
}

// New creates a Resolver with configuration options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		origin:    0,
		dayLength: int64(DefaultDayLength / time.Second),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Day returns the day index for the given time. Times before the origin
// clamp to day 0.
func (r *Resolver) Day(now time.Time) uint64 {
	elapsed := now.Unix() - r.origin
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / r.dayLength)
}

// Window returns the half-open [start, end) window for a day index.
func (r *Resolver) Window(day uint64) (start, end time.Time) {
	startUnix := r.origin + int64(day)*r.dayLength
	return time.Unix(startUnix, 0), time.Unix(startUnix+r.dayLength, 0)
}

// Remaining returns how long the given day remains open at now.
// Returns 0 once the day has closed.
func (r *Resolver) Remaining(day uint64, now time.Time) time.Duration {
	_, end := r.Window(day)
	left := end.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// DayLength returns the configured window length.
func (r *Resolver) DayLength() time.Duration {
	return time.Duration(r.dayLength) * time.Second
}
