package clock

import "time"

// Clock supplies run timestamps and can be replaced in tests
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time in UTC so stored run history compares cleanly
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}
