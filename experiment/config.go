package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aqclab/ventana/recording"
	"github.com/aqclab/ventana/seq"
)

// Config is the full tuning of one run.
type Config struct {
	// Chunks is the number of chunks the run acquires and persists.
	Chunks int `yaml:"chunks"`

	// BigCyclesPerChunk is the number of big cycles each chunk executes.
	BigCyclesPerChunk int `yaml:"big_cycles_per_chunk"`

	// LogCapacity overrides the derived per-channel chunk log capacity.
	// Zero keeps the derived bound.
	LogCapacity int `yaml:"log_capacity"`

	// PersistRetries is how many times a failed chunk flush is retried
	// before the run gives up.
	PersistRetries int `yaml:"persist_retries"`

	// Sink picks the persistence backend: sqlite, csv, or clickhouse.
	Sink   string `yaml:"sink"`
	Output string `yaml:"output"`

	ClickHouse recording.ClickHouseConfig `yaml:"clickhouse"`

	Monitor     bool `yaml:"monitor"`
	MonitorPort int  `yaml:"monitor_port"`

	// Seed and DetectionProbability shape the simulated detector when no
	// other edge source is injected.
	Seed                 int64   `yaml:"seed"`
	DetectionProbability float64 `yaml:"detection_probability"`

	Params   seq.Params   `yaml:"params"`
	Bindings seq.Bindings `yaml:"bindings"`
}

// DefaultConfig returns the standard run tuning.
func DefaultConfig() Config {
	return Config{
		Chunks:               10,
		BigCyclesPerChunk:    80,
		PersistRetries:       3,
		Sink:                 "sqlite",
		Monitor:              true,
		Seed:                 1,
		DetectionProbability: 0.05,
		Params:               seq.DefaultParams(),
		Bindings:             seq.DefaultBindings(),
	}
}

// LoadConfig layers a YAML file over the defaults, then applies VENTANA_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	err := errors.Join(
		envInt("VENTANA_CHUNKS", &cfg.Chunks),
		envInt("VENTANA_BIG_CYCLES", &cfg.BigCyclesPerChunk),
		envInt("VENTANA_LOG_CAPACITY", &cfg.LogCapacity),
		envStr("VENTANA_SINK", &cfg.Sink),
		envStr("VENTANA_OUTPUT", &cfg.Output),
		envInt("VENTANA_MONITOR_PORT", &cfg.MonitorPort),
		envInt64("VENTANA_SEED", &cfg.Seed),
		envFloat("VENTANA_DETECTION_P", &cfg.DetectionProbability),
		envStr("VENTANA_CLICKHOUSE_ADDR", &cfg.ClickHouse.Addr),
		envStr("VENTANA_CLICKHOUSE_DATABASE", &cfg.ClickHouse.Database),
		envStr("VENTANA_CLICKHOUSE_USERNAME", &cfg.ClickHouse.Username),
		envStr("VENTANA_CLICKHOUSE_PASSWORD", &cfg.ClickHouse.Password),
	)
	return err
}

func envStr(name string, dst *string) error {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envInt64(name string, dst *int64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// Validate checks the config as a whole, including the embedded params
// and bindings.
func (c Config) Validate() error {
	if c.Chunks <= 0 {
		return fmt.Errorf("chunks must be positive, got %d", c.Chunks)
	}
	if c.BigCyclesPerChunk <= 0 {
		return fmt.Errorf("big_cycles_per_chunk must be positive, got %d",
			c.BigCyclesPerChunk)
	}
	if c.LogCapacity < 0 {
		return fmt.Errorf("log_capacity cannot be negative, got %d",
			c.LogCapacity)
	}
	if c.PersistRetries < 0 {
		return fmt.Errorf("persist_retries cannot be negative, got %d",
			c.PersistRetries)
	}

	switch c.Sink {
	case "sqlite", "csv", "clickhouse":
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	if c.Sink == "clickhouse" && c.ClickHouse.Addr == "" {
		return errors.New("clickhouse sink needs an addr")
	}

	if !c.Monitor && c.MonitorPort != 0 {
		return errors.New("monitor_port is set but the monitor is disabled")
	}

	if c.DetectionProbability < 0 || c.DetectionProbability > 1 {
		return fmt.Errorf("detection_probability must be within [0, 1], got %f",
			c.DetectionProbability)
	}

	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if err := c.Bindings.Validate(); err != nil {
		return fmt.Errorf("bindings: %w", err)
	}

	return nil
}
