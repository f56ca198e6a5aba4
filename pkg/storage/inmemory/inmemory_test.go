package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/storage/inmemory"
	"github.com/papercomputeco/relay/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func(context.Context) storage.Driver {
		return inmemory.NewDriver()
	})

	It("isolates stored records from later caller mutation", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		record := storagetest.NewRecord("s-1", "conv-1", time.Now())
		Expect(d.Put(ctx, record)).To(Succeed())

		record.State = "mutated"

		got, err := d.Get(ctx, "s-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.State).To(Equal("closed"))
		Expect(d.Count()).To(Equal(1))
	})
})
