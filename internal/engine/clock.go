package engine

import "time"

// Clock supplies wall-clock time. Wall readings may jump when the system
// clock is corrected.
type Clock interface {
	Now() time.Time
}

// MonotonicClock is a Clock that can also report time elapsed on a clock
// that never runs backward. Elapsed-time math uses it when available.
type MonotonicClock interface {
	Clock
	Monotonic() time.Duration
}

type realClock struct {
	epoch time.Time
}

// RealClock is the system clock. Monotonic readings are measured from the
// moment RealClock is called.
func RealClock() MonotonicClock {
	return realClock{epoch: time.Now()}
}

// Now strips the monotonic reading so wall-clock arithmetic (durations,
// gaps) follows the calendar exactly.
func (c realClock) Now() time.Time {
	return time.Now().Round(0)
}

func (c realClock) Monotonic() time.Duration {
	return time.Since(c.epoch)
}
