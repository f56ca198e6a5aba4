package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/upstream"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			writeConfig(`version = 0

[upstream]
bot_app_key = "abc123"
idle_timeout = "15s"

[segment]
min_chars = 40
markers = "。？"

[storage]
provider = "sqlite"
sqlite_path = "/var/lib/relay/relay.db"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.BotAppKey).To(Equal("abc123"))
			Expect(cfg.Upstream.IdleTimeout).To(Equal("15s"))
			Expect(cfg.Segment.MinChars).To(Equal(uint(40)))
			Expect(cfg.Segment.Markers).To(Equal("。？"))
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Storage.SQLitePath).To(Equal("/var/lib/relay/relay.db"))
		})

		It("fills unset fields with defaults", func() {
			writeConfig(`[upstream]
bot_app_key = "abc123"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.URL).To(Equal(upstream.DefaultURL))
			Expect(cfg.Relay.Listen).To(Equal(":3000"))
			Expect(cfg.Segment.MinChars).To(Equal(uint(100)))
			Expect(cfg.Events.Provider).To(Equal("nop"))
		})

		It("rejects an unsupported version", func() {
			writeConfig("version = 7\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})

		It("rejects malformed TOML", func() {
			writeConfig("[upstream\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})
	})

	Describe("SaveConfig", func() {
		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})

		It("round-trips through LoadConfig", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Upstream.BotAppKey = "abc123"
			cfg.Events.Brokers = "kafka-1:9092,kafka-2:9092"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("replaces the file without leaving temp files behind", func() {
			writeConfig("version = 0\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(config.NewDefaultConfig())).To(Succeed())

			entries, err := os.ReadDir(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("config.toml"))

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("keeps newline markers intact", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(config.NewDefaultConfig())).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Segment.Markers).To(Equal("。！\n"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists string values", func() {
			Expect(c.SetConfigValue("upstream.bot_app_key", "abc123")).To(Succeed())

			value, err := c.GetConfigValue("upstream.bot_app_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("abc123"))
		})

		It("persists numeric values", func() {
			Expect(c.SetConfigValue("segment.min_chars", "42")).To(Succeed())

			value, err := c.GetConfigValue("segment.min_chars")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("42"))
		})

		It("preserves other keys", func() {
			Expect(c.SetConfigValue("upstream.bot_app_key", "abc123")).To(Succeed())
			Expect(c.SetConfigValue("relay.listen", ":9000")).To(Succeed())

			value, err := c.GetConfigValue("upstream.bot_app_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("abc123"))
		})

		DescribeTable("rejects invalid values",
			func(key, value, message string) {
				err := c.SetConfigValue(key, value)
				Expect(err).To(MatchError(ContainSubstring(message)))
			},
			Entry("unknown key", "proxy.provider", "x", "unknown config key"),
			Entry("non-numeric min chars", "segment.min_chars", "many", "invalid value for segment.min_chars"),
			Entry("bad duration", "upstream.idle_timeout", "soon", "invalid value for upstream.idle_timeout"),
			Entry("unknown storage provider", "storage.provider", "redis", "invalid value for storage.provider"),
			Entry("unknown events provider", "events.provider", "nats", "invalid value for events.provider"),
		)
	})

	Describe("GetConfigValue", func() {
		It("returns defaults when nothing is set", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			value, err := c.GetConfigValue("upstream.url")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(upstream.DefaultURL))

			value, err = c.GetConfigValue("upstream.bot_app_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(BeEmpty())
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nope")
			Expect(err).To(MatchError(`unknown config key: "nope"`))
			Expect(err).To(MatchError(config.ErrUnknownKey))
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(15))
		Expect(keys[0]).To(Equal("relay.listen"))
		Expect(keys[len(keys)-1]).To(Equal("metrics.namespace"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("proxy.listen")).To(BeFalse())
	})
})

var _ = Describe("NewDefaultConfig", func() {
	It("matches the relay's documented defaults", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Relay.Listen).To(Equal(":3000"))
		Expect(cfg.Upstream.URL).To(Equal(upstream.DefaultURL))
		Expect(cfg.Upstream.BotAppKey).To(BeEmpty())
		Expect(cfg.Upstream.Timeout).To(Equal("30s"))
		Expect(cfg.Upstream.IdleTimeout).To(Equal("60s"))
		Expect(cfg.Segment.MinChars).To(Equal(uint(100)))
		Expect(cfg.Segment.Markers).To(Equal("。！\n"))
		Expect(cfg.Decoder.MaxBuffer).To(Equal(uint(1 << 20)))
		Expect(cfg.Storage.Provider).To(Equal("inmemory"))
		Expect(cfg.Events.Provider).To(Equal("nop"))
		Expect(cfg.Events.Topic).To(Equal("relay.sessions"))
		Expect(cfg.Metrics.Namespace).To(Equal("relay"))
	})
})
