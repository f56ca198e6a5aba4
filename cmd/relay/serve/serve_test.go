package servecmder

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/segment"
	"github.com/papercomputeco/relay/pkg/upstream"
)

// prepare builds the serve command with a --config-dir pointing at dir and
// runs its PreRunE after applying args.
func prepare(dir string, args ...string) *ServeCommander {
	cmder := &ServeCommander{flags: serveFlags, logger: logger.Nop()}
	cmd := newServeCmd(cmder)
	cmd.Flags().String("config-dir", dir, "")
	Expect(cmd.Flags().Parse(args)).To(Succeed())
	Expect(cmd.PreRunE(cmd, nil)).To(Succeed())
	return cmder
}

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers every relay flag", func() {
		cmd := NewServeCmd()
		for _, def := range serveFlags {
			Expect(cmd.Flags().Lookup(def.Name)).NotTo(BeNil(), def.Name)
		}
		for _, name := range []string{"pretty", "json", "log-file", "watch"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("takes flag defaults from the default config", func() {
		cmd := NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":3000"))
		Expect(cmd.Flags().Lookup("upstream").DefValue).To(Equal(upstream.DefaultURL))
		Expect(cmd.Flags().Lookup("min-chars").DefValue).To(Equal("100"))
		Expect(cmd.Flags().Lookup("idle-timeout").DefValue).To(Equal("1m0s"))
	})

	It("rejects positional arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("ServeCommander", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("relayConfig", func() {
		It("uses defaults when nothing is configured", func() {
			cmder := prepare(tmpDir)

			cfg := cmder.relayConfig()
			Expect(cfg.ListenAddr).To(Equal(":3000"))
			Expect(cfg.Upstream.URL).To(Equal(upstream.DefaultURL))
			Expect(cfg.Upstream.Timeout).To(Equal(30 * time.Second))
			Expect(cfg.IdleTimeout).To(Equal(time.Minute))
			Expect(cfg.MaxBuffer).To(Equal(1 << 20))
			Expect(cfg.Policy).To(Equal(segment.Policy{MinChars: 100, Markers: []rune("。！\n")}))
			Expect(cfg.MetricsNamespace).To(Equal("relay"))
		})

		It("prefers flags over config.toml", func() {
			data := `[relay]
listen = ":5555"

[segment]
min_chars = 10
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			cmder := prepare(tmpDir, "--min-chars", "25", "--idle-timeout", "5s")
			cfg := cmder.relayConfig()
			Expect(cfg.ListenAddr).To(Equal(":5555"))
			Expect(cfg.Policy.MinChars).To(Equal(25))
			Expect(cfg.IdleTimeout).To(Equal(5 * time.Second))
		})

		It("reads RELAY_ environment variables", func() {
			GinkgoT().Setenv("RELAY_UPSTREAM_BOT_APP_KEY", "env-key")

			cmder := prepare(tmpDir)
			Expect(cmder.relayConfig().Upstream.BotAppKey).To(Equal("env-key"))
		})
	})

	Describe("storageOpts", func() {
		It("defaults sqlite to relay.db in the config dir", func() {
			cmder := prepare(tmpDir)
			cmder.viper.Set("storage.provider", "sqlite")

			opts := cmder.storageOpts()
			Expect(opts.ProviderType).To(Equal("sqlite"))

			abs, err := filepath.Abs(filepath.Join(tmpDir, "relay.db"))
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.SQLitePath).To(Equal(abs))
		})

		It("keeps an explicit sqlite path", func() {
			cmder := prepare(tmpDir)
			cmder.viper.Set("storage.provider", "sqlite")
			cmder.viper.Set("storage.sqlite_path", "/tmp/custom.db")

			Expect(cmder.storageOpts().SQLitePath).To(Equal("/tmp/custom.db"))
		})

		It("leaves the path empty for other providers", func() {
			cmder := prepare(tmpDir)

			opts := cmder.storageOpts()
			Expect(opts.ProviderType).To(Equal("inmemory"))
			Expect(opts.SQLitePath).To(BeEmpty())
		})
	})

	Describe("newLogger", func() {
		It("tees records to --log-file", func() {
			path := filepath.Join(tmpDir, "relay.log")
			cmder := &ServeCommander{logFile: path}

			l, closeLog, err := cmder.newLogger()
			Expect(err).NotTo(HaveOccurred())
			l.Info("session closed", "session_id", "abc")
			Expect(closeLog()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"msg":"session closed"`))
		})
	})
})
