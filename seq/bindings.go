package seq

import (
	"fmt"

	"github.com/aqclab/ventana/rtio"
)

// Bindings maps the sequence's roles onto physical channels.
type Bindings struct {
	// Detectors are the edge-counting inputs watched during each attempt.
	Detectors []rtio.Channel `yaml:"detectors"`

	Coils  rtio.Channel `yaml:"coils"`
	Signal rtio.Channel `yaml:"signal"`
	Tomo   rtio.Channel `yaml:"tomo"`

	TrapCool   rtio.Channel `yaml:"trap_cool"`
	TrapRepump rtio.Channel `yaml:"trap_repump"`
	AtomLoad   rtio.Channel `yaml:"atom_load"`
	Pump       rtio.Channel `yaml:"pump"`
}

// DefaultBindings returns the bench wiring.
func DefaultBindings() Bindings {
	return Bindings{
		Detectors:  []rtio.Channel{0, 1},
		Coils:      6,
		Signal:     7,
		Tomo:       4,
		TrapCool:   8,
		TrapRepump: 9,
		AtomLoad:   10,
		Pump:       11,
	}
}

// Validate reports the first wiring problem.
func (b Bindings) Validate() error {
	if len(b.Detectors) == 0 {
		return fmt.Errorf("at least one detector channel is required")
	}

	used := map[rtio.Channel]string{}
	claim := func(ch rtio.Channel, role string) error {
		if prev, taken := used[ch]; taken {
			return fmt.Errorf("channel %d bound to both %s and %s", ch, prev, role)
		}
		used[ch] = role
		return nil
	}

	for i, ch := range b.Detectors {
		if err := claim(ch, fmt.Sprintf("detector %d", i)); err != nil {
			return err
		}
	}
	outputs := []struct {
		ch   rtio.Channel
		role string
	}{
		{b.Coils, "coils"},
		{b.Signal, "signal"},
		{b.Tomo, "tomo"},
		{b.TrapCool, "trap_cool"},
		{b.TrapRepump, "trap_repump"},
		{b.AtomLoad, "atom_load"},
		{b.Pump, "pump"},
	}
	for _, o := range outputs {
		if err := claim(o.ch, o.role); err != nil {
			return err
		}
	}

	return nil
}
