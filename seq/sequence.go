package seq

import (
	"log"

	"github.com/aqclab/ventana/acq"
	"github.com/aqclab/ventana/rtio"
)

// A Sequence runs the detection-gated experiment cycle on a timeline:
// load the trap, load an atom, then pump-excite-detect attempts grouped
// into cooling cycles, with a bounded recovery after every cooling cycle
// that stays dark. Detections and follow-up actions are recorded into the
// chunk log handed to RunChunk.
//
// A sequence performs no I/O beyond channel scheduling, log writes, and
// the typed host calls on its core.
type Sequence struct {
	p  Params
	tl *rtio.Timeline

	detectors  []*rtio.TTLIn
	coils      *rtio.TTLOut
	signal     *rtio.TTLOut
	tomo       *rtio.TTLOut
	trapCool   *rtio.DDS
	trapRepump *rtio.DDS
	atomLoad   *rtio.DDS
	pump       *rtio.DDS

	// attempt counts every attempt of the running chunk, detected or not.
	attempt int64

	// Window storage is reserved once so attempts do not allocate.
	handles    []rtio.GateHandle
	results    []rtio.GateResult
	gateBlocks []func()

	onBigCycle func(done int)
}

// New builds a sequence over tl with drivers bound per b. Params and
// bindings come validated from the host side; New panics on a broken set.
func New(tl *rtio.Timeline, p Params, b Bindings) *Sequence {
	if err := p.Validate(); err != nil {
		log.Panic(err)
	}
	if err := b.Validate(); err != nil {
		log.Panic(err)
	}

	s := &Sequence{
		p:          p,
		tl:         tl,
		coils:      rtio.NewTTLOut(tl, b.Coils),
		signal:     rtio.NewTTLOut(tl, b.Signal),
		tomo:       rtio.NewTTLOut(tl, b.Tomo),
		trapCool:   rtio.NewDDS(tl, b.TrapCool),
		trapRepump: rtio.NewDDS(tl, b.TrapRepump),
		atomLoad:   rtio.NewDDS(tl, b.AtomLoad),
		pump:       rtio.NewDDS(tl, b.Pump),
	}

	for _, ch := range b.Detectors {
		s.detectors = append(s.detectors, rtio.NewTTLIn(tl, ch))
	}
	s.handles = make([]rtio.GateHandle, len(s.detectors))
	s.results = make([]rtio.GateResult, len(s.detectors))
	s.gateBlocks = make([]func(), len(s.detectors))
	for i := range s.detectors {
		s.gateBlocks[i] = func() {
			s.handles[i] = s.detectors[i].GateRising(s.p.Gate)
		}
	}

	return s
}

// OnBigCycle registers fn to be told, asynchronously, how many big cycles
// of the running chunk have finished. Delivery waits for the next
// synchronous boundary.
func (s *Sequence) OnBigCycle(fn func(done int)) {
	s.onBigCycle = fn
}

// Detectors returns the detector channels in binding order.
func (s *Sequence) Detectors() []rtio.Channel {
	chs := make([]rtio.Channel, len(s.detectors))
	for i, d := range s.detectors {
		chs[i] = d.Channel()
	}
	return chs
}

// RunChunk executes bigCycles big cycles against clog and returns the
// chunk's stats. Attempt indices start at zero for each chunk and never
// reset inside one.
func (s *Sequence) RunChunk(clog *acq.ChunkLog, bigCycles int) acq.ChunkStats {
	if bigCycles <= 0 {
		log.Panic("chunk needs at least one big cycle")
	}

	s.attempt = 0
	stats := acq.NewChunkStats(s.Detectors()...)

	s.pump.SetProfile(s.p.PumpTune)

	for i := 0; i < bigCycles; i++ {
		s.bigCycle(clog, &stats)
		stats.BigCycles++

		if s.onBigCycle != nil {
			done := i + 1
			s.tl.Core().HostAsync(func() { s.onBigCycle(done) })
		}
	}

	return stats
}

func (s *Sequence) bigCycle(clog *acq.ChunkLog, stats *acq.ChunkStats) {
	s.loadTrap()
	s.loadAtom()

	for c := 0; c < s.p.CoolingCycles; c++ {
		detected := s.coolingCycle(clog, stats)
		stats.CoolingCycles++

		if detected && s.p.StopOnDetection {
			return
		}
		if !detected {
			s.recool()
			stats.Recoveries++
		}
	}
}

// coolingCycle runs the attempt budget once and reports whether any
// attempt in it detected.
func (s *Sequence) coolingCycle(clog *acq.ChunkLog, stats *acq.ChunkStats) bool {
	cycleDetected := false

	for a := 0; a < s.p.AttemptsPerCooling; a++ {
		idx := s.attempt
		s.attempt++
		stats.Attempts++

		s.attemptOnce()

		detected := false
		for _, r := range s.results {
			if !r.Detected {
				continue
			}
			detected = true
			clog.Record(r.Channel, acq.EventRecord{
				Timestamp: r.Timestamp,
				Attempt:   idx,
			})
			stats.Detections[r.Channel]++
		}
		if !detected {
			continue
		}

		stats.Detected++
		cycleDetected = true
		if s.p.Tomography {
			s.followUp(clog, idx, stats)
		}
		if s.p.StopOnDetection {
			return true
		}
	}

	return cycleDetected
}

// attemptOnce runs one pump-excite-detect attempt and leaves the window
// results in s.results.
func (s *Sequence) attemptOnce() {
	s.tl.Delay(s.p.PrePumpDelay)
	s.pump.SW.Pulse(s.p.Pump)
	s.tl.Delay(s.p.Settle)
	s.pump.SW.Pulse(s.p.Excite)
	s.tl.Delay(s.p.Settle)

	s.tl.Sequential(
		func() { s.signal.Pulse(s.p.SignalPulse) },
		func() { s.tl.Parallel(s.gateBlocks...) },
	)

	for i, d := range s.detectors {
		s.results[i] = d.Read(s.handles[i])
	}
}

// followUp stamps the follow-up entry at the cursor, then runs the
// tomography pulse.
func (s *Sequence) followUp(clog *acq.ChunkLog, attempt int64, stats *acq.ChunkStats) {
	clog.RecordFollowUp(acq.EventRecord{Timestamp: s.tl.Now(), Attempt: attempt})
	s.tl.Delay(s.p.TomoLead)
	s.tomo.Pulse(s.p.TomoPulse)
	stats.FollowUps++
}

// loadTrap brings up the trap: beams tuned and on, coils on, held for the
// load time. With HostTrapWait the hold runs on the host clock, which
// leaves the cursor behind the counter until the re-slack.
func (s *Sequence) loadTrap() {
	s.trapCool.SetProfile(s.p.TrapCool)
	s.trapRepump.SetProfile(s.p.TrapRepump)
	s.coils.On()
	s.trapCool.SW.On()
	s.trapRepump.SW.On()

	if s.p.HostTrapWait {
		s.tl.Core().HostSync(s.p.TrapLoad.Duration(), func() {})
		s.tl.BreakRealtime()
	} else {
		s.tl.Delay(s.p.TrapLoad)
	}

	s.trapCool.SW.Off()
	s.trapRepump.SW.Off()
	s.coils.Off()
}

func (s *Sequence) loadAtom() {
	s.atomLoad.SetProfile(s.p.AtomTune)
	s.atomLoad.SW.On()
	s.tl.Delay(s.p.AtomLoad)
	s.atomLoad.SW.Off()
}

// recool is the recovery action after a dark cooling cycle: retune the
// trap beams and blip them to rebuild the trap.
func (s *Sequence) recool() {
	s.tl.Delay(s.p.RecoolDelay)
	s.trapCool.SetProfile(s.p.RecoolCool)
	s.trapRepump.SetProfile(s.p.RecoolRepump)
	s.trapCool.SW.On()
	s.trapRepump.SW.On()
	s.tl.Delay(s.p.Settle)
	s.trapCool.SW.Off()
	s.trapRepump.SW.Off()
	s.tl.Delay(s.p.RecoolDelay)
}
