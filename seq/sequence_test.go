package seq

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqclab/ventana/acq"
	"github.com/aqclab/ventana/coresim"
	"github.com/aqclab/ventana/rtio"
)

// runOneChunk wires a fresh device, timeline, and sequence, runs one
// chunk, and settles the device.
func runOneChunk(
	src coresim.EdgeSource,
	p Params,
	bigCycles, capacity int,
) (acq.ChunkStats, acq.ChunkData, *coresim.Device) {
	dev := coresim.NewDevice(src)
	tl := rtio.NewTimeline(dev)
	s := New(tl, p, DefaultBindings())

	clog := acq.NewChunkLog(capacity, DefaultBindings().Detectors...)
	stats := s.RunChunk(clog, bigCycles)
	dev.Sync(tl.Now())

	return stats, clog.Drain(), dev
}

var _ = Describe("Sequence", func() {
	var p Params

	BeforeEach(func() {
		p = DefaultParams()
		p.AttemptsPerCooling = 3
		p.CoolingCycles = 1
	})

	Describe("dark runs", func() {
		It("should run the whole budget and recover once per dark cooling cycle", func() {
			stats, data, _ := runOneChunk(nil, p, 1, 8)

			Expect(stats.Attempts).To(Equal(3))
			Expect(stats.Detected).To(Equal(0))
			Expect(stats.CoolingCycles).To(Equal(1))
			Expect(stats.Recoveries).To(Equal(1))
			Expect(stats.BigCycles).To(Equal(1))
			Expect(stats.FollowUps).To(Equal(0))
			Expect(data.Total()).To(Equal(0))
			Expect(data.FollowUps).To(BeEmpty())
		})

		It("should recover after every dark cooling cycle", func() {
			p.CoolingCycles = 2

			stats, data, _ := runOneChunk(nil, p, 1, 8)

			Expect(stats.Attempts).To(Equal(6))
			Expect(stats.Recoveries).To(Equal(2))
			Expect(stats.CoolingCycles).To(Equal(2))
			Expect(data.Total()).To(Equal(0))
		})
	})

	Describe("stop on detection", func() {
		BeforeEach(func() {
			p.CoolingCycles = 2
			p.StopOnDetection = true
			p.Tomography = true
		})

		It("should end the big cycle at the first detecting attempt", func() {
			src := coresim.NewScript().
				QuietWindows(0, 1).
				Window(0, 10*rtio.Nanosecond)

			stats, data, _ := runOneChunk(src, p, 1, 8)

			Expect(stats.Attempts).To(Equal(2))
			Expect(stats.Detected).To(Equal(1))
			Expect(stats.Detections[rtio.Channel(0)]).To(Equal(1))
			Expect(stats.Detections[rtio.Channel(1)]).To(Equal(0))
			Expect(stats.CoolingCycles).To(Equal(1))
			Expect(stats.Recoveries).To(Equal(0))
			Expect(stats.FollowUps).To(Equal(1))

			Expect(data.Records[0]).To(HaveLen(1))
			Expect(data.Records[0][0].Attempt).To(Equal(int64(1)))
			Expect(data.Records[1]).To(BeEmpty())
		})

		It("should run the follow-up after the detection it belongs to", func() {
			src := coresim.NewScript().
				QuietWindows(0, 1).
				Window(0, 10*rtio.Nanosecond)

			_, data, _ := runOneChunk(src, p, 1, 8)

			Expect(data.FollowUps).To(HaveLen(1))
			Expect(data.FollowUps[0].Attempt).To(Equal(int64(1)))
			Expect(data.FollowUps[0].Timestamp).To(
				BeNumerically(">", data.Records[0][0].Timestamp))
		})

		It("should record coincident detections on every detecting channel", func() {
			src := coresim.NewScript().
				Window(0, 10*rtio.Nanosecond).
				Window(1, 20*rtio.Nanosecond)

			stats, data, _ := runOneChunk(src, p, 1, 8)

			Expect(stats.Attempts).To(Equal(1))
			Expect(stats.Detected).To(Equal(1))
			Expect(stats.Detections[rtio.Channel(0)]).To(Equal(1))
			Expect(stats.Detections[rtio.Channel(1)]).To(Equal(1))
			Expect(stats.FollowUps).To(Equal(1))

			Expect(data.Records[0][0].Attempt).To(Equal(int64(0)))
			Expect(data.Records[1][0].Attempt).To(Equal(int64(0)))
			Expect(data.Records[1][0].Timestamp).To(
				BeNumerically(">", data.Records[0][0].Timestamp))
		})
	})

	Describe("exhausting every attempt", func() {
		BeforeEach(func() {
			p.CoolingCycles = 2
			p.StopOnDetection = false
			p.Tomography = false
		})

		It("should log every detection across the whole budget", func() {
			src := coresim.NewScript().
				Window(0, 10*rtio.Nanosecond).
				QuietWindows(0, 3).
				Window(0, 10*rtio.Nanosecond)

			stats, data, _ := runOneChunk(src, p, 1, 8)

			Expect(stats.Attempts).To(Equal(6))
			Expect(stats.Detected).To(Equal(2))
			Expect(stats.Detections[rtio.Channel(0)]).To(Equal(2))
			Expect(stats.Recoveries).To(Equal(0))
			Expect(stats.FollowUps).To(Equal(0))

			Expect(data.Records[0]).To(HaveLen(2))
			Expect(data.Records[0][0].Attempt).To(Equal(int64(0)))
			Expect(data.Records[0][1].Attempt).To(Equal(int64(4)))
		})

		It("should still recover for the cooling cycles that stay dark", func() {
			src := coresim.NewScript().
				Window(0, 10*rtio.Nanosecond)

			stats, _, _ := runOneChunk(src, p, 1, 8)

			Expect(stats.Attempts).To(Equal(6))
			Expect(stats.Recoveries).To(Equal(1))
		})
	})

	Describe("attempt indices", func() {
		It("should keep counting across big cycles within a chunk", func() {
			p.AttemptsPerCooling = 2
			p.Tomography = false
			src := coresim.NewScript().
				QuietWindows(0, 2).
				Window(0, 10*rtio.Nanosecond)

			stats, data, _ := runOneChunk(src, p, 2, 8)

			Expect(stats.BigCycles).To(Equal(2))
			Expect(stats.Attempts).To(Equal(3))
			Expect(stats.Recoveries).To(Equal(1))
			Expect(data.Records[0][0].Attempt).To(Equal(int64(2)))
		})

		It("should restart at zero for a new chunk", func() {
			p.AttemptsPerCooling = 2
			p.Tomography = false
			src := coresim.NewScript().
				QuietWindows(0, 2).
				Window(0, 10*rtio.Nanosecond)

			dev := coresim.NewDevice(src)
			tl := rtio.NewTimeline(dev)
			s := New(tl, p, DefaultBindings())

			first := acq.NewChunkLog(8, DefaultBindings().Detectors...)
			s.RunChunk(first, 1)
			dev.Sync(tl.Now())
			dev.Reset()
			tl.Restart()

			second := acq.NewChunkLog(8, DefaultBindings().Detectors...)
			stats := s.RunChunk(second, 1)
			dev.Sync(tl.Now())

			Expect(first.Count(0)).To(Equal(0))
			Expect(stats.Detections[rtio.Channel(0)]).To(Equal(1))
			Expect(second.Drain().Records[0][0].Attempt).To(Equal(int64(0)))
		})
	})

	Describe("host-side trap hold", func() {
		It("should hold the trap on the host clock", func() {
			p.HostTrapWait = true

			stats, _, dev := runOneChunk(nil, p, 1, 8)

			Expect(stats.Attempts).To(Equal(3))
			Expect(dev.CounterMu()).To(BeNumerically(">=", p.TrapLoad))
		})
	})

	Describe("progress notifications", func() {
		It("should deliver big-cycle progress at synchronous boundaries", func() {
			dev := coresim.NewDevice(nil)
			tl := rtio.NewTimeline(dev)
			s := New(tl, p, DefaultBindings())

			var done []int
			s.OnBigCycle(func(n int) { done = append(done, n) })

			clog := acq.NewChunkLog(8, DefaultBindings().Detectors...)
			s.RunChunk(clog, 2)

			Expect(done).To(BeEmpty())

			dev.Sync(tl.Now())

			Expect(done).To(Equal([]int{1, 2}))
		})
	})

	Describe("log capacity", func() {
		It("should surface the capacity fault and keep earlier records", func() {
			p.AttemptsPerCooling = 2
			p.StopOnDetection = false
			p.Tomography = false
			src := coresim.NewScript().
				Window(0, 10*rtio.Nanosecond).
				Window(0, 10*rtio.Nanosecond)

			dev := coresim.NewDevice(src)
			tl := rtio.NewTimeline(dev)
			s := New(tl, p, DefaultBindings())
			clog := acq.NewChunkLog(1, DefaultBindings().Detectors...)

			Expect(func() { s.RunChunk(clog, 1) }).To(
				PanicWith(BeAssignableToTypeOf(&acq.CapacityError{})))
			Expect(clog.Count(0)).To(Equal(1))
		})
	})
})
