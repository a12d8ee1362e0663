package rtio

import "log"

// A TTLOut drives one digital output channel.
type TTLOut struct {
	tl *Timeline
	ch Channel
}

// NewTTLOut creates a driver for the digital output ch.
func NewTTLOut(tl *Timeline, ch Channel) *TTLOut {
	return &TTLOut{tl: tl, ch: ch}
}

// Channel returns the channel the driver writes to.
func (o *TTLOut) Channel() Channel {
	return o.ch
}

// On drives the channel high at the cursor.
func (o *TTLOut) On() {
	o.tl.digital(o.ch, true)
}

// Off drives the channel low at the cursor.
func (o *TTLOut) Off() {
	o.tl.digital(o.ch, false)
}

// Pulse drives the channel high for d and advances the cursor by d.
func (o *TTLOut) Pulse(d TimeMu) {
	o.On()
	o.tl.Delay(d)
	o.Off()
}

// A TTLIn observes rising edges on one input channel.
type TTLIn struct {
	tl *Timeline
	ch Channel
}

// NewTTLIn creates a driver for the edge-counting input ch.
func NewTTLIn(tl *Timeline, ch Channel) *TTLIn {
	return &TTLIn{tl: tl, ch: ch}
}

// Channel returns the channel the driver listens on.
func (i *TTLIn) Channel() Channel {
	return i.ch
}

// A GateHandle names one opened detection window until it is read.
type GateHandle struct {
	ch    Channel
	close TimeMu
}

// Channel returns the channel the window listens on.
func (h GateHandle) Channel() Channel {
	return h.ch
}

// GateRising opens a rising-edge detection window of length d at the
// cursor and advances the cursor to the window close.
func (i *TTLIn) GateRising(d TimeMu) GateHandle {
	return i.tl.gate(i.ch, d)
}

// Read consumes the window h. The cursor must be at or past the window
// close. Reading waits out the window on the device, so the counter ends
// at or past the close. The first edge in the window becomes the result
// and any later edges in it are discarded.
func (i *TTLIn) Read(h GateHandle) GateResult {
	if i.tl.cursor < h.close {
		log.Panic("gate window read before close")
	}
	ts := i.tl.core.TimestampMu(h.ch, h.close)
	if ts == NoTimestamp {
		return GateResult{Channel: h.ch, Detected: false, Timestamp: NoTimestamp}
	}
	return GateResult{Channel: h.ch, Detected: true, Timestamp: ts}
}
