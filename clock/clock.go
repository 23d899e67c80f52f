package clock

import "time"

// Clock provides the current time and one-shot timers
// Field code never touches the time package directly so tests can drive it
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancellable pending callback
type Timer interface {
	// Stop prevents the callback from firing, returns false if it already fired or was stopped
	Stop() bool
}

// Real is the wall clock with monotonic readings
type Real struct{}

// NewReal creates a wall clock
func NewReal() *Real {
	return &Real{}
}

// Now returns the current time with monotonic clock reading
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on its own goroutine after d
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
