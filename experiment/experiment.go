package experiment

import (
	"github.com/rs/zerolog"

	"github.com/aqclab/ventana/coresim"
	"github.com/aqclab/ventana/monitoring"
	"github.com/aqclab/ventana/recording"
	"github.com/aqclab/ventana/rtio"
	"github.com/aqclab/ventana/seq"
)

// An Experiment owns one acquisition run end to end: the device, the
// timeline, the sequence, the sink, and the monitor.
type Experiment struct {
	id  string
	cfg Config

	logger   zerolog.Logger
	device   *coresim.Device
	timeline *rtio.Timeline
	seq      *seq.Sequence
	sink     recording.Sink
	monitor  *monitoring.Monitor
}

// ID returns the unique ID of the run.
func (e *Experiment) ID() string {
	return e.id
}

// Device returns the core the run schedules against.
func (e *Experiment) Device() *coresim.Device {
	return e.device
}

// Sequence returns the sequence the run executes.
func (e *Experiment) Sequence() *seq.Sequence {
	return e.seq
}

// Monitor returns the monitor, or nil when monitoring is disabled.
func (e *Experiment) Monitor() *monitoring.Monitor {
	return e.monitor
}

// Terminate closes the sink. Call it once the run is over.
func (e *Experiment) Terminate() {
	if err := e.sink.Close(); err != nil {
		e.logger.Error().Err(err).Msg("closing sink")
	}
}
