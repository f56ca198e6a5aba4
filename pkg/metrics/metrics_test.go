package metrics_test

import (
	"io"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/relay/pkg/metrics"
)

var _ = Describe("Metrics", func() {
	It("allows independent instances in one process", func() {
		Expect(func() {
			metrics.New("a")
			metrics.New("a")
		}).NotTo(Panic())
	})

	It("counts chunks by end marker", func() {
		m := metrics.New("test")
		m.ObserveChunk(51, false)
		m.ObserveChunk(3, true)
		m.ObserveChunk(120, false)

		Expect(testutil.ToFloat64(m.ChunksEmitted.WithLabelValues("false"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.ChunksEmitted.WithLabelValues("true"))).To(Equal(1.0))
	})

	It("serves the exposition format", func() {
		m := metrics.New("test")
		m.Sessions.WithLabelValues("closed").Inc()

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`test_sessions_total{state="closed"} 1`))
	})
})
