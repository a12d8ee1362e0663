package rtio

import "time"

// A Channel identifies one physical output or input channel on a core.
type Channel int

// OpKind tells a core how to interpret an Op.
type OpKind int

// Kinds of timed operations.
const (
	OpDigital OpKind = iota
	OpFrequency
	OpAmplitude
	OpGate
)

func (k OpKind) String() string {
	switch k {
	case OpDigital:
		return "digital"
	case OpFrequency:
		return "frequency"
	case OpAmplitude:
		return "amplitude"
	case OpGate:
		return "gate"
	}
	return "unknown"
}

// An Op is one timed operation submitted to a core.
type Op struct {
	Kind OpKind
	Ch   Channel
	At   TimeMu

	Close TimeMu  // gate window close, OpGate only
	On    bool    // OpDigital only
	Freq  Freq    // OpFrequency only
	Amp   float64 // OpAmplitude only
}

// A GateResult reports the outcome of one edge-detection window.
type GateResult struct {
	Channel   Channel
	Detected  bool
	Timestamp TimeMu // NoTimestamp when Detected is false
}

// Core is the device surface that a timeline schedules against. A core
// executes submitted ops in timestamp order and keeps its counter
// monotonically non-decreasing for the lifetime of the run.
type Core interface {
	// CounterMu returns the current hardware counter position.
	CounterMu() TimeMu

	// Submit queues op for execution at op.At.
	Submit(op Op)

	// TimestampMu waits until the counter reaches upTo, drains the edges
	// recorded on ch up to that point, and returns the earliest of them,
	// or NoTimestamp if the window stayed quiet.
	TimestampMu(ch Channel, upTo TimeMu) TimeMu

	// Sync waits until the counter reaches upTo and every op scheduled at
	// or before upTo has executed.
	Sync(upTo TimeMu)

	// Reset discards pending ops and undrained edges. The counter keeps
	// its position.
	Reset()

	// HostSync runs fn on the host while the counter advances by d. The
	// timeline cursor does not move, so callers must re-slack afterwards.
	HostSync(d time.Duration, fn func())

	// HostAsync queues fn to run on the host at the next synchronous
	// boundary. The device-side sequence must not depend on its effects.
	HostAsync(fn func())
}
