package rtio

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timeline", func() {
	var (
		core *fakeCore
		tl   *Timeline
	)

	BeforeEach(func() {
		core = newFakeCore()
		tl = NewTimeline(core)
	})

	It("should start slacked ahead of the counter", func() {
		Expect(tl.Now()).To(Equal(DefaultSlack))
	})

	It("should advance the cursor on delay", func() {
		start := tl.Now()
		tl.Delay(3 * Microsecond)
		Expect(tl.Now()).To(Equal(start + 3*Microsecond))
	})

	It("should panic on negative delay", func() {
		Expect(func() { tl.Delay(-1) }).To(Panic())
	})

	It("should not emit ops on delay", func() {
		tl.Delay(1 * Millisecond)
		Expect(core.ops).To(BeEmpty())
	})

	It("should run parallel blocks from the same start", func() {
		out := NewTTLOut(tl, 4)
		start := tl.Now()

		tl.Parallel(
			func() { out.Pulse(50 * Nanosecond) },
			func() { tl.Delay(2 * Microsecond) },
		)

		Expect(core.ops).To(HaveLen(2))
		Expect(core.ops[0].At).To(Equal(start))
		Expect(core.ops[1].At).To(Equal(start + 50*Nanosecond))
	})

	It("should leave the cursor at the latest parallel end", func() {
		start := tl.Now()

		tl.Parallel(
			func() { tl.Delay(50 * Nanosecond) },
			func() { tl.Delay(2 * Microsecond) },
			func() { tl.Delay(1 * Microsecond) },
		)

		Expect(tl.Now()).To(Equal(start + 2*Microsecond))
	})

	It("should run sequential blocks back to back", func() {
		start := tl.Now()

		tl.Sequential(
			func() { tl.Delay(1 * Microsecond) },
			func() { tl.Delay(2 * Microsecond) },
		)

		Expect(tl.Now()).To(Equal(start + 3*Microsecond))
	})

	It("should re-slack after a synchronous host call", func() {
		before := tl.Now()
		tl.Core().HostSync(time.Second, func() {})

		Expect(tl.Now()).To(Equal(before))

		tl.BreakRealtime()
		Expect(tl.Now()).To(Equal(core.CounterMu() + DefaultSlack))
	})

	It("should never move the cursor backwards on a re-slack", func() {
		tl.Delay(10 * Second)
		before := tl.Now()

		tl.BreakRealtime()

		Expect(tl.Now()).To(Equal(before))
	})

	It("should panic with a timing underflow when scheduling behind the counter", func() {
		out := NewTTLOut(tl, 4)
		core.Sync(tl.Now() + 1*Second)

		Expect(func() { out.On() }).To(
			PanicWith(BeAssignableToTypeOf(&TimingUnderflowError{})))
	})

	It("should panic with a sequence error on same-time edges on one channel", func() {
		out := NewTTLOut(tl, 4)
		out.On()

		Expect(func() { out.Off() }).To(
			PanicWith(BeAssignableToTypeOf(&SequenceError{})))
	})

	It("should panic with a sequence error on an out-of-order edge", func() {
		out := NewTTLOut(tl, 4)
		tl.Delay(1 * Microsecond)
		out.On()
		tl.At(tl.Now() - 500*Nanosecond)

		Expect(func() { out.Off() }).To(
			PanicWith(BeAssignableToTypeOf(&SequenceError{})))
	})

	It("should allow distinct op kinds at the same time on one channel", func() {
		dds := NewDDS(tl, 2)

		Expect(func() {
			dds.SetProfile(Profile{Freq: 120 * MHz, Amp: 0.7})
			dds.SW.On()
		}).NotTo(Panic())

		Expect(core.ops).To(HaveLen(3))
		Expect(core.ops[0].At).To(Equal(core.ops[1].At))
		Expect(core.ops[1].At).To(Equal(core.ops[2].At))
	})

	It("should reject overlapping gate windows on one channel", func() {
		in := NewTTLIn(tl, 0)
		h := in.GateRising(100 * Nanosecond)
		tl.At(h.close - 10*Nanosecond)

		Expect(func() { in.GateRising(100 * Nanosecond) }).To(
			PanicWith(BeAssignableToTypeOf(&SequenceError{})))
	})

	It("should drop ordering state on restart", func() {
		out := NewTTLOut(tl, 4)
		out.On()
		tl.Delay(1 * Microsecond)
		out.Off()

		core.Sync(tl.Now())
		tl.Restart()
		Expect(tl.Now()).To(Equal(core.CounterMu() + DefaultSlack))
		Expect(func() { out.On() }).NotTo(Panic())
	})
})
