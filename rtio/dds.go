package rtio

import "log"

// A Profile is a frequency and amplitude pair latched together.
type Profile struct {
	Freq Freq    `yaml:"freq"`
	Amp  float64 `yaml:"amp"`
}

// A DDS is one direct digital synthesis output. Its switch shares the
// channel's digital edge stream, so switch edges follow the same ordering
// rules as a plain digital output.
type DDS struct {
	tl *Timeline
	ch Channel

	// SW gates the synthesizer output on and off.
	SW *TTLOut
}

// NewDDS creates a driver for the synthesizer channel ch.
func NewDDS(tl *Timeline, ch Channel) *DDS {
	return &DDS{tl: tl, ch: ch, SW: NewTTLOut(tl, ch)}
}

// Channel returns the channel the driver writes to.
func (d *DDS) Channel() Channel {
	return d.ch
}

// Set latches a new output frequency at the cursor.
func (d *DDS) Set(f Freq) {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}
	d.tl.frequency(d.ch, f)
}

// SetAmplitude latches a new output amplitude in [0, 1] at the cursor.
func (d *DDS) SetAmplitude(a float64) {
	if a < 0 || a > 1 {
		log.Panic("amplitude out of range")
	}
	d.tl.amplitude(d.ch, a)
}

// SetProfile latches frequency and amplitude at the same cursor position.
func (d *DDS) SetProfile(p Profile) {
	d.Set(p.Freq)
	d.SetAmplitude(p.Amp)
}
