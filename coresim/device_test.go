package coresim

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqclab/ventana/rtio"
)

type captureHook struct {
	ops []rtio.Op
}

func (h *captureHook) Func(ctx HookCtx) {
	if ctx.Pos == HookPosBeforeOp {
		h.ops = append(h.ops, ctx.Op)
	}
}

var _ = Describe("Device", func() {
	var (
		dev   *Device
		trace *captureHook
	)

	BeforeEach(func() {
		dev = NewDevice(nil)
		trace = &captureHook{}
		dev.AcceptHook(trace)
	})

	It("should hold ops until a wait forces the counter forward", func() {
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 100, On: true})

		Expect(dev.PendingOps()).To(Equal(1))
		Expect(dev.CounterMu()).To(Equal(rtio.TimeMu(0)))

		dev.Sync(100)

		Expect(dev.PendingOps()).To(Equal(0))
		Expect(dev.CounterMu()).To(Equal(rtio.TimeMu(100)))
	})

	It("should execute ops in time order", func() {
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 300, On: false})
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 100, On: true})
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 5, At: 200, On: true})

		dev.Sync(1000)

		Expect(trace.ops).To(HaveLen(3))
		Expect(trace.ops[0].At).To(Equal(rtio.TimeMu(100)))
		Expect(trace.ops[1].At).To(Equal(rtio.TimeMu(200)))
		Expect(trace.ops[2].At).To(Equal(rtio.TimeMu(300)))
	})

	It("should break time ties by submission order", func() {
		dev.Submit(rtio.Op{Kind: rtio.OpFrequency, Ch: 2, At: 100, Freq: 120 * rtio.MHz})
		dev.Submit(rtio.Op{Kind: rtio.OpAmplitude, Ch: 2, At: 100, Amp: 0.7})
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 2, At: 100, On: true})

		dev.Sync(100)

		Expect(trace.ops[0].Kind).To(Equal(rtio.OpFrequency))
		Expect(trace.ops[1].Kind).To(Equal(rtio.OpAmplitude))
		Expect(trace.ops[2].Kind).To(Equal(rtio.OpDigital))
	})

	It("should only execute ops that are due", func() {
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 100, On: true})
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 2000, On: false})

		dev.Sync(500)

		Expect(dev.Level(4)).To(BeTrue())
		Expect(dev.PendingOps()).To(Equal(1))
	})

	It("should never move the counter backwards", func() {
		dev.Sync(1000)
		dev.Sync(10)
		Expect(dev.CounterMu()).To(Equal(rtio.TimeMu(1000)))
	})

	It("should track channel state", func() {
		dev.Submit(rtio.Op{Kind: rtio.OpFrequency, Ch: 3, At: 50, Freq: 90 * rtio.MHz})
		dev.Submit(rtio.Op{Kind: rtio.OpAmplitude, Ch: 3, At: 50, Amp: 0.6})
		dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 3, At: 60, On: true})

		dev.Sync(100)

		Expect(dev.Frequency(3)).To(Equal(90 * rtio.MHz))
		Expect(dev.Amplitude(3)).To(Equal(0.6))
		Expect(dev.Level(3)).To(BeTrue())
		Expect(dev.ExecutedOps()).To(Equal(uint64(3)))
	})

	Describe("detection windows", func() {
		BeforeEach(func() {
			src := NewScript().
				Window(0, 10).
				Window(0)
			dev = NewDevice(src)
		})

		It("should observe scripted edges", func() {
			dev.Submit(rtio.Op{Kind: rtio.OpGate, Ch: 0, At: 100, Close: 200})

			ts := dev.TimestampMu(0, 200)

			Expect(ts).To(Equal(rtio.TimeMu(110)))
			Expect(dev.CounterMu()).To(Equal(rtio.TimeMu(200)))
		})

		It("should report a quiet window", func() {
			dev.Submit(rtio.Op{Kind: rtio.OpGate, Ch: 0, At: 100, Close: 200})
			dev.TimestampMu(0, 200)

			dev.Submit(rtio.Op{Kind: rtio.OpGate, Ch: 0, At: 300, Close: 400})
			ts := dev.TimestampMu(0, 400)

			Expect(ts).To(Equal(rtio.NoTimestamp))
		})

		It("should keep edges beyond the drain point", func() {
			src := NewScript().Window(0, 10, 80)
			dev = NewDevice(src)
			dev.Submit(rtio.Op{Kind: rtio.OpGate, Ch: 0, At: 100, Close: 200})

			first := dev.TimestampMu(0, 150)
			second := dev.TimestampMu(0, 200)

			Expect(first).To(Equal(rtio.TimeMu(110)))
			Expect(second).To(Equal(rtio.TimeMu(180)))
		})
	})

	Describe("reset", func() {
		It("should drop pending work but keep the counter", func() {
			dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 5000, On: true})
			dev.Sync(1000)

			dev.Reset()

			Expect(dev.PendingOps()).To(Equal(0))
			Expect(dev.CounterMu()).To(Equal(rtio.TimeMu(1000)))
		})
	})

	Describe("host calls", func() {
		It("should advance the counter across a synchronous host call", func() {
			ran := false

			dev.HostSync(time.Millisecond, func() { ran = true })

			Expect(ran).To(BeTrue())
			Expect(dev.CounterMu()).To(Equal(1 * rtio.Millisecond))
		})

		It("should play the queue while the host is busy", func() {
			dev.Submit(rtio.Op{Kind: rtio.OpDigital, Ch: 4, At: 100, On: true})

			dev.HostSync(time.Millisecond, func() {})

			Expect(dev.Level(4)).To(BeTrue())
		})

		It("should deliver async notifications at the next boundary, in order", func() {
			var got []int
			dev.HostAsync(func() { got = append(got, 1) })
			dev.HostAsync(func() { got = append(got, 2) })

			Expect(got).To(BeEmpty())

			dev.Sync(10)

			Expect(got).To(Equal([]int{1, 2}))
		})

		It("should deliver pending notifications before a synchronous call runs", func() {
			var got []string
			dev.HostAsync(func() { got = append(got, "async") })

			dev.HostSync(time.Microsecond, func() { got = append(got, "sync") })

			Expect(got).To(Equal([]string{"async", "sync"}))
		})
	})
})
