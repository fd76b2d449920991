package clock

import "time"

// Clock reports the current time for session timestamps, token expiry and events
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock
type Func func() time.Time

// Now calls f
func (f Func) Now() time.Time {
	return f()
}

// System is the wall clock in UTC at microsecond precision, which every
// storage backend preserves exactly
var System Clock = Func(func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
})
