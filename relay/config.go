package relay

import (
	"time"

	"github.com/papercomputeco/relay/pkg/segment"
	"github.com/papercomputeco/relay/pkg/upstream"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Upstream configures the chat-completion service the relay fronts.
	Upstream upstream.Config

	// IdleTimeout aborts a session whose upstream sends nothing for this
	// long. Zero uses DefaultIdleTimeout.
	IdleTimeout time.Duration

	// MaxBuffer caps the undelimited bytes a session's decoder may hold.
	// Zero uses sse.DefaultMaxBuffer.
	MaxBuffer int

	// Policy is the initial flush policy. It can be replaced at runtime with
	// Relay.SetPolicy.
	Policy segment.Policy

	// MetricsNamespace prefixes the prometheus metric names.
	MetricsNamespace string

	// ShutdownTimeout bounds how long Close waits for open streams.
	ShutdownTimeout time.Duration
}

const (
	// DefaultIdleTimeout is used when Config.IdleTimeout is zero.
	DefaultIdleTimeout = 60 * time.Second

	defaultShutdownTimeout = 10 * time.Second
)
