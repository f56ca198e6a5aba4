// Package storagetest holds the shared ginkgo specs every storage.Driver
// must pass.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/storage"
)

// NewRecord returns a completed record for the given session and conversation.
func NewRecord(id, conversationID string, startedAt time.Time) *storage.Record {
	return &storage.Record{
		ID:             id,
		VisitorID:      "visitor-1",
		ConversationID: conversationID,
		Code:           "bot-a",
		State:          "closed",
		Frames:         12,
		DecodeFaults:   1,
		Chunks:         3,
		Chars:          240,
		StartedAt:      startedAt.UTC(),
		CompletedAt:    startedAt.Add(1500 * time.Millisecond).UTC(),
	}
}

// DescribeDriver registers the driver conformance specs. newDriver is called
// once per spec; the returned driver is closed afterwards.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		driver = newDriver(ctx)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put", func() {
		It("rejects a nil record", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilRecord))
		})

		It("overwrites a record with the same ID", func() {
			record := NewRecord("s-1", "conv-1", base)
			Expect(driver.Put(ctx, record)).To(Succeed())

			record.State = "failed"
			record.Error = "upstream idle timeout"
			Expect(driver.Put(ctx, record)).To(Succeed())

			got, err := driver.Get(ctx, "s-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal("failed"))
			Expect(got.Error).To(Equal("upstream idle timeout"))
		})
	})

	Describe("Get", func() {
		It("round-trips every field", func() {
			record := NewRecord("s-1", "conv-1", base)
			Expect(driver.Put(ctx, record)).To(Succeed())

			got, err := driver.Get(ctx, "s-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("s-1"))
			Expect(got.VisitorID).To(Equal("visitor-1"))
			Expect(got.ConversationID).To(Equal("conv-1"))
			Expect(got.Code).To(Equal("bot-a"))
			Expect(got.State).To(Equal("closed"))
			Expect(got.Frames).To(Equal(12))
			Expect(got.DecodeFaults).To(Equal(1))
			Expect(got.Chunks).To(Equal(3))
			Expect(got.Chars).To(Equal(240))
			Expect(got.StartedAt).To(BeTemporally("==", base))
			Expect(got.Duration()).To(Equal(1500 * time.Millisecond))
		})

		It("returns NotFoundError for an unknown ID", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
		})
	})

	Describe("ListByConversation", func() {
		It("returns only the conversation's records, oldest first", func() {
			Expect(driver.Put(ctx, NewRecord("s-2", "conv-1", base.Add(time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, NewRecord("s-1", "conv-1", base))).To(Succeed())
			Expect(driver.Put(ctx, NewRecord("s-3", "conv-2", base))).To(Succeed())

			records, err := driver.ListByConversation(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("s-1"))
			Expect(records[1].ID).To(Equal("s-2"))
		})

		It("returns nothing for an unknown conversation", func() {
			records, err := driver.ListByConversation(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})
	})
}
