package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqclab/ventana/rtio"
)

type stubCore struct {
	counter rtio.TimeMu
}

func (c *stubCore) CounterMu() rtio.TimeMu { return c.counter }

func (c *stubCore) Submit(_ rtio.Op) {}

func (c *stubCore) TimestampMu(_ rtio.Channel, _ rtio.TimeMu) rtio.TimeMu {
	return rtio.NoTimestamp
}

func (c *stubCore) Sync(_ rtio.TimeMu) {}

func (c *stubCore) Reset() {}

func (c *stubCore) HostSync(_ time.Duration, fn func()) { fn() }

func (c *stubCore) HostAsync(fn func()) { fn() }

var _ = Describe("Monitor", func() {
	var m *Monitor

	BeforeEach(func() {
		m = NewMonitor()
	})

	It("should create and complete progress bars", func() {
		bar := m.CreateProgressBar("chunks", 4)

		Expect(m.progressBars).To(HaveLen(1))

		bar.Begin(1)
		bar.Complete(1)
		bar.Advance(2)
		Expect(bar.Done()).To(Equal(uint64(3)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should serve progress bars as JSON", func() {
		bar := m.CreateProgressBar("attempts", 100)
		bar.Advance(42)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/progress", nil)
		m.buildRouter().ServeHTTP(rec, req)

		var bars []progressSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("attempts"))
		Expect(bars[0].Total).To(Equal(uint64(100)))
		Expect(bars[0].Done).To(Equal(uint64(42)))
	})

	It("should accumulate chunk updates", func() {
		m.PublishChunk(ChunkUpdate{Chunk: 0, Attempts: 7})
		m.PublishChunk(ChunkUpdate{Chunk: 1, Attempts: 3})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/chunks", nil)
		m.buildRouter().ServeHTTP(rec, req)

		var chunks []ChunkUpdate
		Expect(json.Unmarshal(rec.Body.Bytes(), &chunks)).To(Succeed())
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0].Chunk).To(Equal(0))
		Expect(chunks[0].Attempts).To(Equal(7))
		Expect(chunks[1].Chunk).To(Equal(1))
	})

	It("should report the counter", func() {
		m.RegisterCore(&stubCore{counter: 2 * rtio.Second})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/now", nil)
		m.buildRouter().ServeHTTP(rec, req)

		Expect(rec.Body.String()).To(
			Equal(`{"now_mu":2000000000,"now_sec":2.000000000}`))
	})

	It("should list registered targets in order", func() {
		m.RegisterTarget("sequence", struct{}{})
		m.RegisterTarget("device", struct{}{})
		m.RegisterTarget("sequence", struct{}{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/targets", nil)
		m.buildRouter().ServeHTTP(rec, req)

		Expect(rec.Body.String()).To(Equal(`["sequence","device"]`))
	})

	It("should 404 on an unknown target", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/state/nope", nil)
		m.buildRouter().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(404))
	})
})
