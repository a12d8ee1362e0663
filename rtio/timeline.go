package rtio

import (
	"log"
	"time"
)

// DefaultSlack is the margin between the hardware counter and the cursor
// after a re-slack.
const DefaultSlack = 125 * Microsecond

// A Timeline owns the scheduling cursor over one core. Channel drivers
// emit their ops through it, which is where timing underflows and
// per-channel ordering violations are caught. A timeline is driven by a
// single goroutine.
type Timeline struct {
	core   Core
	cursor TimeMu
	slack  TimeMu

	lastDigital   map[Channel]TimeMu
	lastFreq      map[Channel]TimeMu
	lastAmp       map[Channel]TimeMu
	lastGateClose map[Channel]TimeMu
}

// NewTimeline creates a timeline over core with the cursor slacked ahead
// of the counter.
func NewTimeline(core Core) *Timeline {
	t := &Timeline{
		core:          core,
		slack:         DefaultSlack,
		lastDigital:   make(map[Channel]TimeMu),
		lastFreq:      make(map[Channel]TimeMu),
		lastAmp:       make(map[Channel]TimeMu),
		lastGateClose: make(map[Channel]TimeMu),
	}
	t.BreakRealtime()
	return t
}

// SetSlack changes the margin used by BreakRealtime.
func (t *Timeline) SetSlack(s TimeMu) {
	if s <= 0 {
		log.Panic("slack must be positive")
	}
	t.slack = s
}

// Core returns the core the timeline schedules against.
func (t *Timeline) Core() Core {
	return t.core
}

// Now returns the cursor position.
func (t *Timeline) Now() TimeMu {
	return t.cursor
}

// At moves the cursor to an absolute time.
func (t *Timeline) At(at TimeMu) {
	t.cursor = at
}

// Delay advances the cursor by d without emitting anything.
func (t *Timeline) Delay(d TimeMu) {
	if d < 0 {
		log.Panic("negative delay")
	}
	t.cursor += d
}

// DelayDuration advances the cursor by a wall-clock duration.
func (t *Timeline) DelayDuration(d time.Duration) {
	t.Delay(DurationToMu(d))
}

// BreakRealtime moves the cursor to the counter plus the slack margin.
// The cursor never moves backwards. It must be called after any
// synchronous host call before further scheduling.
func (t *Timeline) BreakRealtime() {
	target := t.core.CounterMu() + t.slack
	if target > t.cursor {
		t.cursor = target
	}
}

// Restart drops the per-channel ordering state of the finished sequence
// and re-slacks the cursor for a new one.
func (t *Timeline) Restart() {
	clear(t.lastDigital)
	clear(t.lastFreq)
	clear(t.lastAmp)
	clear(t.lastGateClose)
	t.BreakRealtime()
}

// Parallel runs each block with the cursor reset to the block start.
// Afterwards the cursor sits at the latest end among the blocks.
func (t *Timeline) Parallel(blocks ...func()) {
	start := t.cursor
	end := start
	for _, b := range blocks {
		t.cursor = start
		b()
		if t.cursor > end {
			end = t.cursor
		}
	}
	t.cursor = end
}

// Sequential runs the blocks one after another at the cursor.
func (t *Timeline) Sequential(blocks ...func()) {
	for _, b := range blocks {
		b()
	}
}

func (t *Timeline) digital(ch Channel, on bool) {
	t.checkUnderflow(ch, t.cursor)
	if last, seen := t.lastDigital[ch]; seen && t.cursor <= last {
		panic(&SequenceError{Ch: ch, Kind: OpDigital, At: t.cursor, Last: last})
	}
	t.lastDigital[ch] = t.cursor
	t.core.Submit(Op{Kind: OpDigital, Ch: ch, At: t.cursor, On: on})
}

func (t *Timeline) frequency(ch Channel, f Freq) {
	t.checkUnderflow(ch, t.cursor)
	if last, seen := t.lastFreq[ch]; seen && t.cursor <= last {
		panic(&SequenceError{Ch: ch, Kind: OpFrequency, At: t.cursor, Last: last})
	}
	t.lastFreq[ch] = t.cursor
	t.core.Submit(Op{Kind: OpFrequency, Ch: ch, At: t.cursor, Freq: f})
}

func (t *Timeline) amplitude(ch Channel, a float64) {
	t.checkUnderflow(ch, t.cursor)
	if last, seen := t.lastAmp[ch]; seen && t.cursor <= last {
		panic(&SequenceError{Ch: ch, Kind: OpAmplitude, At: t.cursor, Last: last})
	}
	t.lastAmp[ch] = t.cursor
	t.core.Submit(Op{Kind: OpAmplitude, Ch: ch, At: t.cursor, Amp: a})
}

func (t *Timeline) gate(ch Channel, d TimeMu) GateHandle {
	if d <= 0 {
		log.Panic("gate window must have positive length")
	}
	t.checkUnderflow(ch, t.cursor)
	if last, seen := t.lastGateClose[ch]; seen && t.cursor < last {
		panic(&SequenceError{Ch: ch, Kind: OpGate, At: t.cursor, Last: last})
	}
	close := t.cursor + d
	t.lastGateClose[ch] = close
	t.core.Submit(Op{Kind: OpGate, Ch: ch, At: t.cursor, Close: close})
	t.cursor = close
	return GateHandle{ch: ch, close: close}
}

func (t *Timeline) checkUnderflow(ch Channel, at TimeMu) {
	counter := t.core.CounterMu()
	if at <= counter {
		panic(&TimingUnderflowError{Ch: ch, At: at, Counter: counter})
	}
}
