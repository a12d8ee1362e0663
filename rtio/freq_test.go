package rtio

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		var f = 1 * GHz
		Expect(f.Period()).To(Equal(1 * Nanosecond))
	})

	It("should get period of a slow reference", func() {
		var f = 10 * MHz
		Expect(f.Period()).To(Equal(100 * Nanosecond))
	})

	It("should round the period to a machine unit", func() {
		var f = 400 * MHz
		Expect(f.Period()).To(Equal(TimeMu(3)))
	})

	It("should panic on zero frequency", func() {
		var f Freq
		Expect(func() { f.Period() }).To(Panic())
	})

	It("should count cycles in a duration", func() {
		var f = 80 * MHz
		Expect(f.Cycles(1 * Microsecond)).To(Equal(uint64(80)))
	})

	It("should get the n cycles later", func() {
		var f = 100 * MHz
		Expect(f.NCyclesLater(12, 50*Nanosecond)).To(Equal(TimeMu(170)))
	})
})
