package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/papercomputeco/relay/pkg/dotdir"
	"github.com/papercomputeco/relay/pkg/segment"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RELAY_RELAY_LISTEN, RELAY_UPSTREAM_BOT_APP_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: RELAY_UPSTREAM_URL, RELAY_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// WatchSegment re-reads config.toml whenever it changes on disk and calls
// onChange with the resulting flush policy. It is a no-op when no config
// file was found.
func WatchSegment(v *viper.Viper, onChange func(segment.Policy, fsnotify.Event)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		onChange(SegmentPolicy(v), e)
	})
	v.WatchConfig()
	return true
}

// SegmentPolicy builds the flush policy from the segment.* keys.
func SegmentPolicy(v *viper.Viper) segment.Policy {
	return segment.Policy{
		MinChars: v.GetInt("segment.min_chars"),
		Markers:  []rune(v.GetString("segment.markers")),
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Relay
	v.SetDefault("relay.listen", d.Relay.Listen)

	// Upstream
	v.SetDefault("upstream.url", d.Upstream.URL)
	v.SetDefault("upstream.bot_app_key", d.Upstream.BotAppKey)
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)
	v.SetDefault("upstream.idle_timeout", d.Upstream.IdleTimeout)

	// Segment
	v.SetDefault("segment.min_chars", d.Segment.MinChars)
	v.SetDefault("segment.markers", d.Segment.Markers)

	// Decoder
	v.SetDefault("decoder.max_buffer", d.Decoder.MaxBuffer)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Metrics
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}
