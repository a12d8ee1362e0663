package experiment

import (
	stdlog "log"
	"os"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/aqclab/ventana/coresim"
	"github.com/aqclab/ventana/monitoring"
	"github.com/aqclab/ventana/recording"
	"github.com/aqclab/ventana/rtio"
	"github.com/aqclab/ventana/seq"
)

// Builder can be used to build an experiment.
type Builder struct {
	cfg     Config
	sink    recording.Sink
	src     coresim.EdgeSource
	logger  *zerolog.Logger
	opTrace *stdlog.Logger
}

// MakeBuilder creates a new builder with the default config.
func MakeBuilder() Builder {
	return Builder{
		cfg: DefaultConfig(),
	}
}

// WithConfig sets the run config.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithSink injects a sink instead of building one from the config.
func (b Builder) WithSink(s recording.Sink) Builder {
	b.sink = s
	return b
}

// WithEdgeSource injects an edge source instead of the seeded simulated
// detector.
func (b Builder) WithEdgeSource(src coresim.EdgeSource) Builder {
	b.src = src
	return b
}

// WithLogger sets the host logger.
func (b Builder) WithLogger(l zerolog.Logger) Builder {
	b.logger = &l
	return b
}

// WithOpTracing prints every executed timed operation to l.
func (b Builder) WithOpTracing(l *stdlog.Logger) Builder {
	b.opTrace = l
	return b
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.cfg.Monitor = false
	b.cfg.MonitorPort = 0
	return b
}

// Build builds the experiment. The monitor server, when enabled, is
// already listening when Build returns.
func (b Builder) Build() (*Experiment, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Experiment{
		id:  xid.New().String(),
		cfg: b.cfg,
	}

	if b.logger != nil {
		e.logger = *b.logger
	} else {
		e.logger = zerolog.New(os.Stderr).With().
			Timestamp().Str("run", e.id).Logger()
	}

	src := b.src
	if src == nil {
		src = coresim.NewBernoulli(b.cfg.DetectionProbability, b.cfg.Seed)
	}

	e.device = coresim.NewDevice(src)
	if b.opTrace != nil {
		e.device.AcceptHook(coresim.NewOpLogger(b.opTrace))
	}

	e.timeline = rtio.NewTimeline(e.device)
	e.seq = seq.New(e.timeline, b.cfg.Params, b.cfg.Bindings)

	if err := b.buildSink(e); err != nil {
		return nil, err
	}

	if b.cfg.Monitor {
		e.monitor = monitoring.NewMonitor()
		if b.cfg.MonitorPort > 0 {
			e.monitor.WithPortNumber(b.cfg.MonitorPort)
		}
		e.monitor.RegisterCore(e.device)
		e.monitor.RegisterTarget("sequence", e.seq)
		e.monitor.RegisterTarget("device", e.device)
		e.monitor.StartServer()
	}

	return e, nil
}

func (b Builder) buildSink(e *Experiment) error {
	if b.sink != nil {
		e.sink = b.sink
		return nil
	}

	output := b.cfg.Output
	if output == "" {
		output = "ventana_run_" + e.id
	}

	var err error
	switch b.cfg.Sink {
	case "sqlite":
		e.sink, err = recording.NewSQLiteSink(output)
	case "csv":
		e.sink, err = recording.NewCSVSink(output)
	case "clickhouse":
		e.sink, err = recording.NewClickHouseSink(b.cfg.ClickHouse, e.id)
	}

	return err
}
