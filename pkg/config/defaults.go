package config

import (
	"github.com/papercomputeco/relay/pkg/metrics"
	"github.com/papercomputeco/relay/pkg/upstream"
)

const (
	defaultListen      = ":3000"
	defaultTimeout     = "30s"
	defaultIdleTimeout = "60s"

	defaultMinChars  = 100
	defaultMarkers   = "。！\n"
	defaultMaxBuffer = 1 << 20

	defaultStorageProvider = "inmemory"
	defaultEventsProvider  = "nop"
	defaultEventsTopic     = "relay.sessions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen: defaultListen,
		},
		Upstream: UpstreamConfig{
			URL:         upstream.DefaultURL,
			Timeout:     defaultTimeout,
			IdleTimeout: defaultIdleTimeout,
		},
		Segment: SegmentConfig{
			MinChars: defaultMinChars,
			Markers:  defaultMarkers,
		},
		Decoder: DecoderConfig{
			MaxBuffer: defaultMaxBuffer,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}
