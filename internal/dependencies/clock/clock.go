package clock

import "time"

// Clock is the source of "now" for token issue and expiry decisions
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC, truncated to whole seconds to match
// the resolution of token timestamps
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
