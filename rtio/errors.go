package rtio

import "fmt"

// A TimingUnderflowError reports an operation scheduled at or before the
// hardware counter. The sequence that caused it cannot continue; the run
// must be restarted with a larger slack margin.
type TimingUnderflowError struct {
	Ch      Channel
	At      TimeMu
	Counter TimeMu
}

func (e *TimingUnderflowError) Error() string {
	return fmt.Sprintf(
		"timing underflow on channel %d: op at %d mu, counter at %d mu",
		e.Ch, e.At, e.Counter)
}

// A SequenceError reports an operation that breaks the per-channel ordering
// rules: digital edges and same-kind profile writes must carry strictly
// increasing timestamps, and gate windows must not overlap.
type SequenceError struct {
	Ch   Channel
	Kind OpKind
	At   TimeMu
	Last TimeMu
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf(
		"sequence error on channel %d: %s op at %d mu conflicts with earlier op at %d mu",
		e.Ch, e.Kind, e.At, e.Last)
}
