package sessionscmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/storage/inmemory"
	"github.com/papercomputeco/relay/pkg/storage/sqlite"
	"github.com/papercomputeco/relay/pkg/storage/storagetest"
)

var _ = Describe("sessions command", func() {
	var (
		tmpDir string
		ctx    context.Context
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	Describe("runSessions", func() {
		It("prints every session of the conversation in order", func() {
			driver := inmemory.NewDriver()
			start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			Expect(driver.Put(ctx, storagetest.NewRecord("sess-2", "conv-1", start.Add(time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, storagetest.NewRecord("sess-1", "conv-1", start))).To(Succeed())
			Expect(driver.Put(ctx, storagetest.NewRecord("sess-3", "conv-2", start))).To(Succeed())

			var out bytes.Buffer
			Expect(runSessions(ctx, &out, driver, "conv-1")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("conv-1"))
			Expect(out.String()).To(MatchRegexp(`(?s)sess-1.*sess-2`))
			Expect(out.String()).NotTo(ContainSubstring("sess-3"))
			Expect(out.String()).To(ContainSubstring("3 chunks, 240 chars, 12 frames in 1.5s"))
		})

		It("reports an empty conversation", func() {
			var out bytes.Buffer
			Expect(runSessions(ctx, &out, inmemory.NewDriver(), "conv-9")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No sessions recorded for conv-9"))
		})

		It("prints the error of failed sessions", func() {
			driver := inmemory.NewDriver()
			r := storagetest.NewRecord("sess-1", "conv-1", time.Now())
			r.State = "failed"
			r.Error = "upstream idle timeout"
			Expect(driver.Put(ctx, r)).To(Succeed())

			var out bytes.Buffer
			Expect(runSessions(ctx, &out, driver, "conv-1")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("upstream idle timeout"))
		})
	})

	Describe("driverOpts", func() {
		It("prefers an explicit --sqlite path", func() {
			c := &sessionsCommander{sqlitePath: "/tmp/x.db"}
			opts, err := c.driverOpts(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.ProviderType).To(Equal("sqlite"))
			Expect(opts.SQLitePath).To(Equal("/tmp/x.db"))
		})

		It("prefers an explicit --postgres DSN", func() {
			c := &sessionsCommander{postgresDSN: "postgres://localhost/relay"}
			opts, err := c.driverOpts(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.ProviderType).To(Equal("postgres"))
		})

		It("falls back to relay.db in the config dir", func() {
			c := &sessionsCommander{}
			opts, err := c.driverOpts(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.ProviderType).To(Equal("sqlite"))
			Expect(opts.SQLitePath).To(HaveSuffix("relay.db"))
		})

		It("uses the configured postgres DSN", func() {
			data := `[storage]
provider = "postgres"
postgres_dsn = "postgres://db/relay"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			opts, err := (&sessionsCommander{}).driverOpts(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.ProviderType).To(Equal("postgres"))
			Expect(opts.PostgresDSN).To(Equal("postgres://db/relay"))
		})
	})

	It("reads sessions written by the sqlite store", func() {
		path := filepath.Join(tmpDir, "relay.db")
		driver, err := sqlite.NewDriver(ctx, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Put(ctx, storagetest.NewRecord("sess-1", "conv-1", time.Now()))).To(Succeed())
		Expect(driver.Close()).To(Succeed())

		var out bytes.Buffer
		cmd := NewSessionsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"conv-1", "--sqlite", path})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("sess-1"))
	})
})
