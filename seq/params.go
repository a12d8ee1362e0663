package seq

import (
	"fmt"

	"github.com/aqclab/ventana/rtio"
)

// Params fixes the timing, tuning, and retry shape of a run. A Params
// value is frozen when the run starts; the sequence never mutates it.
type Params struct {
	// Phase durations.
	TrapLoad     rtio.TimeMu `yaml:"trap_load"`
	AtomLoad     rtio.TimeMu `yaml:"atom_load"`
	PrePumpDelay rtio.TimeMu `yaml:"pre_pump_delay"`
	Pump         rtio.TimeMu `yaml:"pump"`
	Excite       rtio.TimeMu `yaml:"excite"`
	Settle       rtio.TimeMu `yaml:"settle"`
	SignalPulse  rtio.TimeMu `yaml:"signal_pulse"`
	Gate         rtio.TimeMu `yaml:"gate"`
	RecoolDelay  rtio.TimeMu `yaml:"recool_delay"`
	TomoLead     rtio.TimeMu `yaml:"tomo_lead"`
	TomoPulse    rtio.TimeMu `yaml:"tomo_pulse"`

	// Synthesizer tunings.
	TrapCool     rtio.Profile `yaml:"trap_cool"`
	TrapRepump   rtio.Profile `yaml:"trap_repump"`
	AtomTune     rtio.Profile `yaml:"atom_tune"`
	PumpTune     rtio.Profile `yaml:"pump_tune"`
	RecoolCool   rtio.Profile `yaml:"recool_cool"`
	RecoolRepump rtio.Profile `yaml:"recool_repump"`

	// Retry budget.
	AttemptsPerCooling int `yaml:"attempts_per_cooling"`
	CoolingCycles      int `yaml:"cooling_cycles"`

	// StopOnDetection ends the big cycle at the first detecting attempt.
	// Without it every attempt of every cooling cycle runs and all
	// detections are logged.
	StopOnDetection bool `yaml:"stop_on_detection"`

	// HostTrapWait holds the trap load on the host clock instead of the
	// device timeline.
	HostTrapWait bool `yaml:"host_trap_wait"`

	// Tomography runs the follow-up pulse after each detecting attempt.
	Tomography bool `yaml:"tomography"`
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		TrapLoad:     500 * rtio.Millisecond,
		AtomLoad:     100 * rtio.Millisecond,
		PrePumpDelay: 5 * rtio.Microsecond,
		Pump:         10 * rtio.Microsecond,
		Excite:       50 * rtio.Nanosecond,
		Settle:       1 * rtio.Microsecond,
		SignalPulse:  50 * rtio.Nanosecond,
		Gate:         100 * rtio.Nanosecond,
		RecoolDelay:  12 * rtio.Microsecond,
		TomoLead:     3 * rtio.Microsecond,
		TomoPulse:    10 * rtio.Millisecond,

		TrapCool:     rtio.Profile{Freq: 100 * rtio.MHz, Amp: 0.8},
		TrapRepump:   rtio.Profile{Freq: 80 * rtio.MHz, Amp: 0.5},
		AtomTune:     rtio.Profile{Freq: 120 * rtio.MHz, Amp: 0.7},
		PumpTune:     rtio.Profile{Freq: 90 * rtio.MHz, Amp: 0.6},
		RecoolCool:   rtio.Profile{Freq: 50 * rtio.MHz, Amp: 0.5},
		RecoolRepump: rtio.Profile{Freq: 60 * rtio.MHz, Amp: 0.5},

		AttemptsPerCooling: 50,
		CoolingCycles:      100,

		StopOnDetection: true,
		Tomography:      true,
	}
}

// Validate reports the first problem that would make the sequence
// unschedulable.
func (p Params) Validate() error {
	positive := []struct {
		name string
		d    rtio.TimeMu
	}{
		{"trap_load", p.TrapLoad},
		{"atom_load", p.AtomLoad},
		{"pump", p.Pump},
		{"excite", p.Excite},
		{"settle", p.Settle},
		{"signal_pulse", p.SignalPulse},
		{"gate", p.Gate},
	}
	for _, e := range positive {
		if e.d <= 0 {
			return fmt.Errorf("%s must be positive, got %d mu", e.name, e.d)
		}
	}

	if p.PrePumpDelay < 0 {
		return fmt.Errorf("pre_pump_delay must not be negative")
	}
	if p.RecoolDelay < 0 {
		return fmt.Errorf("recool_delay must not be negative")
	}
	if p.Tomography {
		if p.TomoPulse <= 0 {
			return fmt.Errorf("tomo_pulse must be positive, got %d mu", p.TomoPulse)
		}
		if p.TomoLead < 0 {
			return fmt.Errorf("tomo_lead must not be negative")
		}
	}

	profiles := []struct {
		name string
		p    rtio.Profile
	}{
		{"trap_cool", p.TrapCool},
		{"trap_repump", p.TrapRepump},
		{"atom_tune", p.AtomTune},
		{"pump_tune", p.PumpTune},
		{"recool_cool", p.RecoolCool},
		{"recool_repump", p.RecoolRepump},
	}
	for _, e := range profiles {
		if e.p.Freq <= 0 {
			return fmt.Errorf("%s frequency must be positive", e.name)
		}
		if e.p.Amp < 0 || e.p.Amp > 1 {
			return fmt.Errorf("%s amplitude must be in [0, 1], got %g", e.name, e.p.Amp)
		}
	}

	if p.AttemptsPerCooling <= 0 {
		return fmt.Errorf("attempts_per_cooling must be positive, got %d",
			p.AttemptsPerCooling)
	}
	if p.CoolingCycles <= 0 {
		return fmt.Errorf("cooling_cycles must be positive, got %d", p.CoolingCycles)
	}

	return nil
}

// LogCapacity returns the structural worst-case record count per channel
// for a chunk of bigCycles big cycles. With StopOnDetection at most one
// attempt per big cycle detects; otherwise every attempt may.
func (p Params) LogCapacity(bigCycles int) int {
	if p.StopOnDetection {
		return bigCycles
	}
	return bigCycles * p.CoolingCycles * p.AttemptsPerCooling
}
