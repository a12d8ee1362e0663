package experiment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aqclab/ventana/acq"
	"github.com/aqclab/ventana/monitoring"
	"github.com/aqclab/ventana/recording"
	"github.com/aqclab/ventana/rtio"
)

// Summary tallies a run.
type Summary struct {
	RunID string

	// Chunks counts chunks fully acquired and persisted.
	Chunks        int
	Attempts      int
	Detections    int
	FollowUps     int
	Recoveries    int
	CoolingCycles int
	BigCycles     int

	// Interrupted is set when the run stopped at a chunk boundary because
	// the context was canceled.
	Interrupted bool
}

// Run acquires and persists all configured chunks. Cancellation is honored
// at chunk boundaries only; a started chunk always finishes and persists.
// On a persistence failure the run stops with a PersistenceError carrying
// the drained data.
func (e *Experiment) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: e.id}

	capacity := e.cfg.LogCapacity
	if capacity == 0 {
		capacity = e.cfg.Params.LogCapacity(e.cfg.BigCyclesPerChunk)
	}

	e.logger.Info().
		Int("chunks", e.cfg.Chunks).
		Int("big_cycles_per_chunk", e.cfg.BigCyclesPerChunk).
		Int("log_capacity", capacity).
		Str("sink", e.cfg.Sink).
		Msg("starting run")

	info := recording.RunInfo(e.id, time.Now(), map[string]string{
		"Chunks":            strconv.Itoa(e.cfg.Chunks),
		"BigCyclesPerChunk": strconv.Itoa(e.cfg.BigCyclesPerChunk),
		"LogCapacity":       strconv.Itoa(capacity),
		"Sink":              e.cfg.Sink,
		"Seed":              strconv.FormatInt(e.cfg.Seed, 10),
	})
	if err := e.sink.WriteRunInfo(info); err != nil {
		return sum, fmt.Errorf("writing run info: %w", err)
	}

	var chunksBar *monitoring.ProgressBar
	if e.monitor != nil {
		chunksBar = e.monitor.CreateProgressBar(
			"chunks", uint64(e.cfg.Chunks))
		bigBar := e.monitor.CreateProgressBar(
			"big cycles", uint64(e.cfg.Chunks*e.cfg.BigCyclesPerChunk))
		e.seq.OnBigCycle(func(int) { bigBar.Advance(1) })
	}

	for chunk := 0; chunk < e.cfg.Chunks; chunk++ {
		select {
		case <-ctx.Done():
			e.logger.Warn().Int("chunk", chunk).
				Msg("run interrupted at chunk boundary")
			sum.Interrupted = true
			return sum, ctx.Err()
		default:
		}

		if chunksBar != nil {
			chunksBar.Begin(1)
		}

		stats, data, err := e.acquireChunk(chunk, capacity)
		if err != nil {
			return sum, err
		}

		if err := verifyChunk(stats, data); err != nil {
			return sum, err
		}

		if err := e.persistChunk(chunk, data); err != nil {
			return sum, err
		}

		sum.Chunks++
		sum.Attempts += stats.Attempts
		sum.Detections += data.Total()
		sum.FollowUps += stats.FollowUps
		sum.Recoveries += stats.Recoveries
		sum.CoolingCycles += stats.CoolingCycles
		sum.BigCycles += stats.BigCycles

		if chunksBar != nil {
			chunksBar.Complete(1)
		}
		if e.monitor != nil {
			e.monitor.PublishChunk(monitoring.ChunkUpdate{
				Chunk:         chunk,
				Attempts:      stats.Attempts,
				Detections:    data.Total(),
				FollowUps:     stats.FollowUps,
				Recoveries:    stats.Recoveries,
				CoolingCycles: stats.CoolingCycles,
				BigCycles:     stats.BigCycles,
				CompletedAt:   time.Now(),
			})
		}

		e.logger.Info().
			Int("chunk", chunk).
			Int("attempts", stats.Attempts).
			Int("detections", data.Total()).
			Int("follow_ups", stats.FollowUps).
			Msg("chunk persisted")
	}

	e.logger.Info().
		Int("chunks", sum.Chunks).
		Int("attempts", sum.Attempts).
		Int("detections", sum.Detections).
		Msg("run complete")

	return sum, nil
}

// acquireChunk runs one chunk on a fresh log and drains it. Run-fatal
// faults surface as errors; anything else panicking stays a panic.
func (e *Experiment) acquireChunk(
	chunk int,
	capacity int,
) (stats acq.ChunkStats, data acq.ChunkData, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		fault, ok := r.(error)
		if !ok {
			panic(r)
		}

		switch fault.(type) {
		case *rtio.TimingUnderflowError, *rtio.SequenceError, *acq.CapacityError:
			err = fmt.Errorf("chunk %d aborted: %w", chunk, fault)
		default:
			panic(r)
		}
	}()

	clog := acq.NewChunkLog(capacity, e.seq.Detectors()...)

	e.device.Reset()
	e.timeline.Restart()

	stats = e.seq.RunChunk(clog, e.cfg.BigCyclesPerChunk)
	e.device.Sync(e.timeline.Now())

	data = clog.Drain()
	return stats, data, nil
}

// verifyChunk checks the drained data against what the sequence counted.
func verifyChunk(stats acq.ChunkStats, data acq.ChunkData) error {
	for _, ch := range data.Channels {
		if got, want := data.Count(ch), stats.Detections[ch]; got != want {
			return fmt.Errorf(
				"chunk drain mismatch on channel %d: %d records, %d counted",
				ch, got, want)
		}
	}

	if got, want := len(data.FollowUps), stats.FollowUps; got != want {
		return fmt.Errorf(
			"chunk drain mismatch: %d follow-ups drained, %d counted",
			got, want)
	}

	return nil
}

// persistChunk appends the chunk and flushes, retrying the flush within
// the configured budget.
func (e *Experiment) persistChunk(chunk int, data acq.ChunkData) error {
	if err := e.sink.AppendChunk(chunk, data); err != nil {
		return &PersistenceError{Chunk: chunk, Data: data, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.PersistRetries; attempt++ {
		if attempt > 0 {
			e.logger.Warn().
				Int("chunk", chunk).
				Int("retry", attempt).
				Err(lastErr).
				Msg("retrying chunk flush")
		}

		lastErr = e.sink.Flush()
		if lastErr == nil {
			return nil
		}
	}

	return &PersistenceError{Chunk: chunk, Data: data, Err: lastErr}
}
