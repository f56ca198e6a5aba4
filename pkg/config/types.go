package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent relay configuration stored as config.toml
// in the .relay/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Relay    RelayConfig    `toml:"relay"`
	Upstream UpstreamConfig `toml:"upstream"`
	Segment  SegmentConfig  `toml:"segment"`
	Decoder  DecoderConfig  `toml:"decoder"`
	Storage  StorageConfig  `toml:"storage"`
	Events   EventsConfig   `toml:"events"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// RelayConfig holds the inbound HTTP server settings.
type RelayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UpstreamConfig holds the chat service settings. Durations use Go duration
// syntax, e.g. "30s".
type UpstreamConfig struct {
	URL         string `toml:"url,omitempty"`
	BotAppKey   string `toml:"bot_app_key,omitempty"`
	Timeout     string `toml:"timeout,omitempty"`
	IdleTimeout string `toml:"idle_timeout,omitempty"`
}

// SegmentConfig holds the flush policy. Markers is the set of boundary
// characters as one string.
type SegmentConfig struct {
	MinChars uint   `toml:"min_chars,omitempty"`
	Markers  string `toml:"markers,omitempty"`
}

// DecoderConfig holds upstream frame decoding limits.
type DecoderConfig struct {
	MaxBuffer uint `toml:"max_buffer,omitempty"`
}

// StorageConfig selects where finished session records are kept.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig selects where session completion events are published.
// Brokers is a comma-separated list of host:port addresses.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Namespace string `toml:"namespace,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (allowed: %v)", name, v, allowed)
		},
	}
}

// StorageProviders are the accepted values of storage.provider.
var StorageProviders = []string{"inmemory", "sqlite", "postgres"}

// EventsProviders are the accepted values of events.provider.
var EventsProviders = []string{"nop", "kafka"}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.listen":          stringKey(func(c *Config) *string { return &c.Relay.Listen }),
	"upstream.url":          stringKey(func(c *Config) *string { return &c.Upstream.URL }),
	"upstream.bot_app_key":  stringKey(func(c *Config) *string { return &c.Upstream.BotAppKey }),
	"upstream.timeout":      durationKey("upstream.timeout", func(c *Config) *string { return &c.Upstream.Timeout }),
	"upstream.idle_timeout": durationKey("upstream.idle_timeout", func(c *Config) *string { return &c.Upstream.IdleTimeout }),
	"segment.min_chars":     uintKey("segment.min_chars", func(c *Config) *uint { return &c.Segment.MinChars }),
	"segment.markers":       stringKey(func(c *Config) *string { return &c.Segment.Markers }),
	"decoder.max_buffer":    uintKey("decoder.max_buffer", func(c *Config) *uint { return &c.Decoder.MaxBuffer }),
	"storage.provider":      oneOfKey("storage.provider", StorageProviders, func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":   stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":  stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"events.provider":       oneOfKey("events.provider", EventsProviders, func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":        stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":          stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"metrics.namespace":     stringKey(func(c *Config) *string { return &c.Metrics.Namespace }),
}
