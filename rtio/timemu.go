package rtio

import "time"

// TimeMu is a timestamp or duration on the device timeline, in machine
// units. One machine unit is one nanosecond.
type TimeMu int64

// Durations in machine units.
const (
	Nanosecond  TimeMu = 1
	Microsecond TimeMu = 1e3
	Millisecond TimeMu = 1e6
	Second      TimeMu = 1e9
)

// NoTimestamp is returned for a gate window that closed without an edge.
const NoTimestamp TimeMu = -1

// DurationToMu converts a wall-clock duration to machine units.
func DurationToMu(d time.Duration) TimeMu {
	return TimeMu(d.Nanoseconds())
}

// Duration converts a machine-unit duration to a wall-clock duration.
func (t TimeMu) Duration() time.Duration {
	return time.Duration(t)
}
