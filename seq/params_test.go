package seq

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Params", func() {
	It("should accept the production tuning", func() {
		Expect(DefaultParams().Validate()).To(Succeed())
	})

	It("should reject a non-positive phase duration", func() {
		p := DefaultParams()
		p.Gate = 0
		Expect(p.Validate()).To(HaveOccurred())
	})

	It("should reject a zero settle", func() {
		p := DefaultParams()
		p.Settle = 0
		Expect(p.Validate()).To(HaveOccurred())
	})

	It("should reject an out-of-range amplitude", func() {
		p := DefaultParams()
		p.RecoolCool.Amp = 1.3
		Expect(p.Validate()).To(HaveOccurred())
	})

	It("should reject an empty retry budget", func() {
		p := DefaultParams()
		p.CoolingCycles = 0
		Expect(p.Validate()).To(HaveOccurred())
	})

	It("should ignore the follow-up pulse when tomography is off", func() {
		p := DefaultParams()
		p.Tomography = false
		p.TomoPulse = 0
		Expect(p.Validate()).To(Succeed())
	})

	Describe("log capacity", func() {
		It("should bound stop-on-detection chunks by big cycles", func() {
			p := DefaultParams()
			p.StopOnDetection = true

			Expect(p.LogCapacity(80)).To(Equal(80))
		})

		It("should bound exhaust-all chunks by the whole attempt budget", func() {
			p := DefaultParams()
			p.StopOnDetection = false
			p.CoolingCycles = 4
			p.AttemptsPerCooling = 10

			Expect(p.LogCapacity(3)).To(Equal(120))
		})
	})
})

var _ = Describe("Bindings", func() {
	It("should accept the bench wiring", func() {
		Expect(DefaultBindings().Validate()).To(Succeed())
	})

	It("should require a detector", func() {
		b := DefaultBindings()
		b.Detectors = nil
		Expect(b.Validate()).To(HaveOccurred())
	})

	It("should reject double-booked channels", func() {
		b := DefaultBindings()
		b.Tomo = b.Signal
		Expect(b.Validate()).To(HaveOccurred())
	})
})
