package auction

import "time"

// Clock supplies the current time to the engine. Deadlines are data
// compared against the clock, not scheduling primitives, so a fixed
// clock is enough to make every code path deterministic in tests.
type Clock interface {
    Now() time.Time
}

type systemClock struct{}

// SystemClock returns a clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct {
    now time.Time
}

// FixedClock returns a clock that always reports the same instant.
func FixedClock(t time.Time) Clock { return fixedClock{now: t.UTC()} }

func (f fixedClock) Now() time.Time { return f.now }
