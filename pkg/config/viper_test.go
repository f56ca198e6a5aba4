package config_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/segment"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("relay.listen")).To(Equal(defaults.Relay.Listen))
		Expect(v.GetString("upstream.url")).To(Equal(defaults.Upstream.URL))
		Expect(v.GetDuration("upstream.idle_timeout")).To(Equal(60 * time.Second))
		Expect(v.GetInt("segment.min_chars")).To(Equal(100))
		Expect(v.GetInt("decoder.max_buffer")).To(Equal(1 << 20))
		Expect(v.ConfigFileUsed()).To(BeEmpty())
	})

	It("reads config file values over defaults", func() {
		data := `[upstream]
url = "http://localhost:9999/sse"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("upstream.url")).To(Equal("http://localhost:9999/sse"))
		// Unset fields should still get defaults
		Expect(v.GetString("upstream.timeout")).To(Equal("30s"))
	})

	It("respects environment variables with RELAY_ prefix", func() {
		GinkgoT().Setenv("RELAY_UPSTREAM_BOT_APP_KEY", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("upstream.bot_app_key")).To(Equal("from-env"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[storage]
provider = "sqlite"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("RELAY_STORAGE_PROVIDER", "postgres")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("storage.provider")).To(Equal("postgres"))
	})
})

var _ = Describe("SegmentPolicy", func() {
	It("builds the flush policy from segment keys", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		Expect(config.SegmentPolicy(v)).To(Equal(segment.Policy{
			MinChars: 100,
			Markers:  []rune{'。', '！', '\n'},
		}))
	})
})

var _ = Describe("WatchSegment", func() {
	It("does nothing without a config file", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		Expect(config.WatchSegment(v, func(segment.Policy, fsnotify.Event) {})).To(BeFalse())
	})

	It("reports the new policy when config.toml changes", func() {
		tmpDir := GinkgoT().TempDir()
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[segment]\nmin_chars = 100\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		changes := make(chan segment.Policy, 8)
		Expect(config.WatchSegment(v, func(p segment.Policy, _ fsnotify.Event) {
			select {
			case changes <- p:
			default:
			}
		})).To(BeTrue())

		Expect(os.WriteFile(path, []byte("[segment]\nmin_chars = 20\nmarkers = \"。\"\n"), 0o600)).To(Succeed())

		Eventually(changes, 5*time.Second).Should(Receive(Equal(segment.Policy{
			MinChars: 20,
			Markers:  []rune{'。'},
		})))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	fs := config.FlagSet{
		config.FlagListen:      {Name: "listen", Shorthand: "l", ViperKey: "relay.listen", Description: "Address for the relay to listen on"},
		config.FlagMinChars:    {Name: "min-chars", ViperKey: "segment.min_chars", Description: "Characters to hold before flushing"},
		config.FlagIdleTimeout: {Name: "idle-timeout", ViperKey: "upstream.idle_timeout", Description: "Upstream idle timeout"},
	}

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, fs, config.FlagListen, &listen)

		// Simulate flag being set by user
		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagListen})

		Expect(v.GetString("relay.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[relay]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, fs, config.FlagListen, &listen)

		// Do NOT set the flag -- should fall through to config file value
		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagListen})

		Expect(v.GetString("relay.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("relay.listen")).To(Equal(":3000"))
	})

	It("AddUintFlag takes its default from NewDefaultConfig", func() {
		cmd := &cobra.Command{Use: "test"}
		var minChars uint
		config.AddUintFlag(cmd, fs, config.FlagMinChars, &minChars)

		f := cmd.Flags().Lookup("min-chars")
		Expect(f).NotTo(BeNil())
		Expect(f.Usage).To(Equal("Characters to hold before flushing"))
		Expect(f.DefValue).To(Equal("100"))
	})

	It("AddDurationFlag takes its default from NewDefaultConfig", func() {
		cmd := &cobra.Command{Use: "test"}
		var idle time.Duration
		config.AddDurationFlag(cmd, fs, config.FlagIdleTimeout, &idle)

		f := cmd.Flags().Lookup("idle-timeout")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("1m0s"))
		Expect(idle).To(Equal(time.Minute))
	})
})
