package segment_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/segment"
)

var _ = Describe("Policy", func() {
	var p segment.Policy

	BeforeEach(func() {
		p = segment.DefaultPolicy()
	})

	Context("when the span is final", func() {
		It("emits the whole span and ends the answer", func() {
			d := p.Decide([]rune("tail without boundary"), true)
			Expect(d.Emit).To(BeTrue())
			Expect(d.Text).To(Equal("tail without boundary"))
			Expect(d.Consumed).To(Equal(len("tail without boundary")))
			Expect(d.IsEnd).To(BeTrue())
		})

		It("emits an empty span", func() {
			d := p.Decide(nil, true)
			Expect(d).To(Equal(segment.Decision{Emit: true, Text: "", Consumed: 0, IsEnd: true}))
		})
	})

	Context("when the span is below the threshold", func() {
		It("holds 99 characters", func() {
			d := p.Decide([]rune(strings.Repeat("a", 99)), false)
			Expect(d.Emit).To(BeFalse())
			Expect(d.Consumed).To(BeZero())
		})

		It("holds a short span even when it contains a boundary", func() {
			d := p.Decide([]rune("short。"), false)
			Expect(d.Emit).To(BeFalse())
		})
	})

	Context("when the span reaches the threshold", func() {
		It("cuts just after the boundary", func() {
			span := []rune(strings.Repeat("a", 50) + "。" + strings.Repeat("b", 49))
			Expect(span).To(HaveLen(100))

			d := p.Decide(span, false)
			Expect(d.Emit).To(BeTrue())
			Expect(d.Text).To(Equal(strings.Repeat("a", 50) + "。"))
			Expect(d.Consumed).To(Equal(51))
			Expect(d.IsEnd).To(BeFalse())
		})

		It("uses the latest of several boundaries", func() {
			span := []rune(strings.Repeat("a", 40) + "！" + strings.Repeat("b", 40) + "\n" + strings.Repeat("c", 30))
			d := p.Decide(span, false)
			Expect(d.Consumed).To(Equal(82))
			Expect(d.Text).To(HaveSuffix("\n"))
		})

		It("emits the full span when it ends on a boundary", func() {
			span := []rune(strings.Repeat("字", 99) + "。")
			d := p.Decide(span, false)
			Expect(d.Consumed).To(Equal(100))
			Expect(d.Text).To(Equal(string(span)))
		})

		It("holds a span with no boundary", func() {
			d := p.Decide([]rune(strings.Repeat("a", 150)), false)
			Expect(d.Emit).To(BeFalse())
			Expect(d.Consumed).To(BeZero())
		})

		It("counts multi-byte characters once each", func() {
			// 99 runes is ~300 bytes but still below the threshold.
			d := p.Decide([]rune(strings.Repeat("好", 98)+"。"), false)
			Expect(d.Emit).To(BeFalse())
		})
	})

	Context("with a custom configuration", func() {
		It("honours MinChars and Markers", func() {
			p = segment.Policy{MinChars: 5, Markers: []rune{'.'}}
			d := p.Decide([]rune("ab. cd"), false)
			Expect(d.Emit).To(BeTrue())
			Expect(d.Text).To(Equal("ab."))
		})

		It("falls back to defaults for zero values", func() {
			p = segment.Policy{}
			Expect(p.Decide([]rune(strings.Repeat("a", 99)+"。"), false).Emit).To(BeTrue())
			Expect(p.Decide([]rune(strings.Repeat("a", 98)+"。"), false).Emit).To(BeFalse())
		})
	})
})
