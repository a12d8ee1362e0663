package coresim

import (
	"container/heap"
	"sync"
	"time"

	"github.com/aqclab/ventana/rtio"
)

// A Device is a deterministic in-process core. Submitted ops wait in a
// time-ordered queue and execute when a wait forces the counter past
// their timestamps. The counter is monotonic for the lifetime of the
// device; Reset drops queued work but keeps the counter position.
//
// The device is safe for concurrent inspection while one goroutine drives
// the sequence.
type Device struct {
	mu sync.Mutex

	src     EdgeSource
	counter rtio.TimeMu
	queue   opHeap
	nextSeq uint64

	edges  map[rtio.Channel][]rtio.TimeMu
	levels map[rtio.Channel]bool
	freqs  map[rtio.Channel]rtio.Freq
	amps   map[rtio.Channel]float64

	asyncs   []func()
	executed uint64

	hooks []Hook
}

// NewDevice creates a device whose detection windows observe edges from
// src. A nil src behaves as a dark detector.
func NewDevice(src EdgeSource) *Device {
	if src == nil {
		src = NoEdges{}
	}
	d := &Device{
		src:    src,
		edges:  make(map[rtio.Channel][]rtio.TimeMu),
		levels: make(map[rtio.Channel]bool),
		freqs:  make(map[rtio.Channel]rtio.Freq),
		amps:   make(map[rtio.Channel]float64),
	}
	heap.Init(&d.queue)
	return d
}

// AcceptHook registers a hook invoked around op execution. Hooks run with
// the device locked and must not call back into it.
func (d *Device) AcceptHook(hook Hook) {
	d.mu.Lock()
	d.hooks = append(d.hooks, hook)
	d.mu.Unlock()
}

// CounterMu returns the counter position.
func (d *Device) CounterMu() rtio.TimeMu {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counter
}

// Submit queues op for execution at op.At. Ordering validation belongs to
// the timeline; the device executes what it is given.
func (d *Device) Submit(op rtio.Op) {
	d.mu.Lock()
	heap.Push(&d.queue, pendingOp{op: op, seq: d.nextSeq})
	d.nextSeq++
	d.mu.Unlock()
}

// TimestampMu advances the counter to upTo, executes the ops due by then,
// and drains the edges recorded on ch up to upTo. The earliest drained
// edge is returned, or NoTimestamp if there is none.
func (d *Device) TimestampMu(ch rtio.Channel, upTo rtio.TimeMu) rtio.TimeMu {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.advanceTo(upTo)

	first := rtio.NoTimestamp
	rest := d.edges[ch][:0]
	for _, e := range d.edges[ch] {
		switch {
		case e > upTo:
			rest = append(rest, e)
		case first == rtio.NoTimestamp:
			first = e
		}
	}
	d.edges[ch] = rest

	return first
}

// Sync advances the counter to upTo, executes the ops due by then, and
// delivers queued host notifications.
func (d *Device) Sync(upTo rtio.TimeMu) {
	d.mu.Lock()
	d.advanceTo(upTo)
	asyncs := d.takeAsyncs()
	d.mu.Unlock()

	for _, fn := range asyncs {
		fn()
	}
}

// Reset drops pending ops and undrained edges and delivers queued host
// notifications. The counter keeps its position.
func (d *Device) Reset() {
	d.mu.Lock()
	d.queue = d.queue[:0]
	d.edges = make(map[rtio.Channel][]rtio.TimeMu)
	asyncs := d.takeAsyncs()
	d.mu.Unlock()

	for _, fn := range asyncs {
		fn()
	}
}

// HostSync delivers queued host notifications, runs fn on the host, and
// plays dur worth of the queue while the host is busy.
func (d *Device) HostSync(dur time.Duration, fn func()) {
	d.mu.Lock()
	asyncs := d.takeAsyncs()
	target := d.counter + rtio.DurationToMu(dur)
	d.mu.Unlock()

	for _, a := range asyncs {
		a()
	}
	fn()

	d.mu.Lock()
	d.advanceTo(target)
	d.mu.Unlock()
}

// HostAsync queues fn for delivery at the next synchronous boundary.
func (d *Device) HostAsync(fn func()) {
	d.mu.Lock()
	d.asyncs = append(d.asyncs, fn)
	d.mu.Unlock()
}

// Level returns the last driven level on a digital channel.
func (d *Device) Level(ch rtio.Channel) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[ch]
}

// Frequency returns the last latched frequency on a synthesizer channel.
func (d *Device) Frequency(ch rtio.Channel) rtio.Freq {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqs[ch]
}

// Amplitude returns the last latched amplitude on a synthesizer channel.
func (d *Device) Amplitude(ch rtio.Channel) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.amps[ch]
}

// PendingOps returns the number of ops waiting to execute.
func (d *Device) PendingOps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// ExecutedOps returns the number of ops executed since creation.
func (d *Device) ExecutedOps() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.executed
}

func (d *Device) takeAsyncs() []func() {
	asyncs := d.asyncs
	d.asyncs = nil
	return asyncs
}

func (d *Device) advanceTo(t rtio.TimeMu) {
	for d.queue.Len() > 0 && d.queue[0].op.At <= t {
		p := heap.Pop(&d.queue).(pendingOp)
		if d.counter < p.op.At {
			d.counter = p.op.At
		}
		d.execute(p.op)
	}
	if d.counter < t {
		d.counter = t
	}
}

func (d *Device) execute(op rtio.Op) {
	ctx := HookCtx{Domain: d, Pos: HookPosBeforeOp, Op: op, Counter: d.counter}
	for _, h := range d.hooks {
		h.Func(ctx)
	}

	switch op.Kind {
	case rtio.OpDigital:
		d.levels[op.Ch] = op.On
	case rtio.OpFrequency:
		d.freqs[op.Ch] = op.Freq
	case rtio.OpAmplitude:
		d.amps[op.Ch] = op.Amp
	case rtio.OpGate:
		d.edges[op.Ch] = append(d.edges[op.Ch],
			d.src.Edges(op.Ch, op.At, op.Close)...)
	}
	d.executed++

	ctx.Pos = HookPosAfterOp
	for _, h := range d.hooks {
		h.Func(ctx)
	}
}
