package segment_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/segment"
)

var _ = Describe("LastBoundary", func() {
	It("returns -1 when no marker occurs", func() {
		Expect(segment.LastBoundary([]rune("no markers here"), segment.DefaultMarkers)).To(Equal(-1))
	})

	It("returns -1 for empty text", func() {
		Expect(segment.LastBoundary(nil, segment.DefaultMarkers)).To(Equal(-1))
	})

	It("picks the latest marker across all marker kinds", func() {
		text := []rune("一。二！三\n四")
		Expect(segment.LastBoundary(text, segment.DefaultMarkers)).To(Equal(5))
	})

	It("prefers a later period over an earlier newline", func() {
		text := []rune("a\nbc。d")
		Expect(segment.LastBoundary(text, segment.DefaultMarkers)).To(Equal(4))
	})

	It("counts characters, not bytes", func() {
		text := []rune("你好。")
		Expect(segment.LastBoundary(text, segment.DefaultMarkers)).To(Equal(2))
	})

	It("ignores ASCII punctuation unless configured", func() {
		Expect(segment.LastBoundary([]rune("a. b!"), segment.DefaultMarkers)).To(Equal(-1))
		Expect(segment.LastBoundary([]rune("a. b!"), []rune{'.', '!'})).To(Equal(4))
	})
})
