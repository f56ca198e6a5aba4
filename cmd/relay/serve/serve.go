// Package servecmder provides the serve command for running the relay.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/dotdir"
	eventstreamutils "github.com/papercomputeco/relay/pkg/eventstream/utils"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/segment"
	storageutils "github.com/papercomputeco/relay/pkg/storage/utils"
	"github.com/papercomputeco/relay/pkg/upstream"
	"github.com/papercomputeco/relay/pkg/utils"
	"github.com/papercomputeco/relay/relay"
)

// defaultSQLiteFile is created in the .relay/ directory when the sqlite
// provider is selected without a path.
const defaultSQLiteFile = "relay.db"

type ServeCommander struct {
	flags config.FlagSet

	listen          string
	upstream        string
	botAppKey       string
	upstreamTimeout time.Duration
	idleTimeout     time.Duration
	minChars        uint
	markers         string
	maxBuffer       uint
	storage         string
	sqlitePath      string
	postgresDSN     string
	events          string
	brokers         string
	topic           string
	metricsNS       string

	debug     bool
	pretty    bool
	json      bool
	watch     bool
	logFile   string
	configDir string

	viper  *viper.Viper
	logger *slog.Logger
}

var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "relay.listen",
		Description: "Address for the relay to listen on",
	},
	config.FlagUpstream: {
		Name:        "upstream",
		Shorthand:   "u",
		ViperKey:    "upstream.url",
		Description: "Upstream streaming chat endpoint",
	},
	config.FlagBotAppKey: {
		Name:        "bot-app-key",
		ViperKey:    "upstream.bot_app_key",
		Description: "Bot application key sent to the upstream",
	},
	config.FlagUpstreamTimeout: {
		Name:        "upstream-timeout",
		ViperKey:    "upstream.timeout",
		Description: "Timeout for connecting to the upstream and receiving headers",
	},
	config.FlagIdleTimeout: {
		Name:        "idle-timeout",
		ViperKey:    "upstream.idle_timeout",
		Description: "Abort a stream when the upstream sends nothing for this long",
	},
	config.FlagMinChars: {
		Name:        "min-chars",
		ViperKey:    "segment.min_chars",
		Description: "Characters to accumulate before a chunk may be flushed",
	},
	config.FlagMarkers: {
		Name:        "markers",
		ViperKey:    "segment.markers",
		Description: "Characters that end a chunk once min-chars is reached",
	},
	config.FlagMaxBuffer: {
		Name:        "max-buffer",
		ViperKey:    "decoder.max_buffer",
		Description: "Maximum bytes held for a single undelimited upstream frame",
	},
	config.FlagStorage: {
		Name:        "storage",
		ViperKey:    "storage.provider",
		Description: "Session record storage (inmemory, sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database (default: .relay/relay.db)",
	},
	config.FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	config.FlagEvents: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Session event publisher (nop, kafka)",
	},
	config.FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated Kafka broker addresses",
	},
	config.FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for session events",
	},
	config.FlagMetricsNS: {
		Name:        "metrics-namespace",
		ViperKey:    "metrics.namespace",
		Description: "Prefix for exported prometheus metrics",
	},
}

const serveLongDesc string = `Run the relay server.

The relay accepts POST /conversation requests, opens a streaming call to the
upstream chat service and re-emits the answer as sentence-aligned chunks.
Finished sessions are recorded to storage and optionally published to Kafka.

Configuration precedence: flags, RELAY_* environment variables, config.toml,
then defaults. With --watch, edits to the [segment] section of config.toml
apply to new sessions without a restart.

Endpoints:
  POST /conversation   Stream a resegmented answer
  GET  /ping           Liveness check
  GET  /metrics        Prometheus metrics`

const serveShortDesc string = "Run the relay server"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&ServeCommander{flags: serveFlags})
}

func newServeCmd(cmder *ServeCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			keys := make([]string, 0, len(cmder.flags))
			for k := range cmder.flags {
				keys = append(keys, k)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, keys)

			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBotAppKey, &cmder.botAppKey)
	config.AddStringFlag(cmd, cmder.flags, config.FlagMarkers, &cmder.markers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorage, &cmder.storage)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEvents, &cmder.events)
	config.AddStringFlag(cmd, cmder.flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTopic, &cmder.topic)
	config.AddStringFlag(cmd, cmder.flags, config.FlagMetricsNS, &cmder.metricsNS)
	config.AddDurationFlag(cmd, cmder.flags, config.FlagUpstreamTimeout, &cmder.upstreamTimeout)
	config.AddDurationFlag(cmd, cmder.flags, config.FlagIdleTimeout, &cmder.idleTimeout)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMinChars, &cmder.minChars)
	config.AddUintFlag(cmd, cmder.flags, config.FlagMaxBuffer, &cmder.maxBuffer)

	cmd.Flags().BoolVar(&cmder.pretty, "pretty", false, "Colorized human readable logs")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "JSON logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Reload the flush policy when config.toml changes")

	return cmd
}

func (c *ServeCommander) run() error {
	var closeLog func() error
	var err error
	c.logger, closeLog, err = c.newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	c.logger.Info("relay build", utils.BuildInfo()...)

	ctx := context.Background()

	driver, err := storageutils.NewDriver(ctx, c.storageOpts())
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.viper.GetString("events.provider"),
		Brokers:      c.viper.GetString("events.brokers"),
		Topic:        c.viper.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()

	r, err := relay.New(c.relayConfig(), driver, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}
	defer r.Close()

	if c.watch {
		watching := config.WatchSegment(c.viper, func(p segment.Policy, e fsnotify.Event) {
			c.logger.Info("config changed, updating flush policy",
				"file", e.Name,
				"min_chars", p.MinChars,
				"markers", string(p.Markers),
			)
			r.SetPolicy(p)
		})
		if !watching {
			c.logger.Warn("--watch set but no config.toml found, flush policy is static")
		}
	}

	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

// newLogger builds the console logger and, with --log-file, tees records to
// a JSON file. The returned func closes the file.
func (c *ServeCommander) newLogger() (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(c.pretty),
		logger.WithJSON(c.json),
	)
	if c.logFile == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

// relayConfig resolves the relay configuration from the viper precedence
// chain.
func (c *ServeCommander) relayConfig() relay.Config {
	v := c.viper
	return relay.Config{
		ListenAddr: v.GetString("relay.listen"),
		Upstream: upstream.Config{
			URL:       v.GetString("upstream.url"),
			BotAppKey: v.GetString("upstream.bot_app_key"),
			Timeout:   v.GetDuration("upstream.timeout"),
		},
		IdleTimeout:      v.GetDuration("upstream.idle_timeout"),
		MaxBuffer:        v.GetInt("decoder.max_buffer"),
		Policy:           config.SegmentPolicy(v),
		MetricsNamespace: v.GetString("metrics.namespace"),
	}
}

func (c *ServeCommander) storageOpts() *storageutils.NewDriverOpts {
	opts := &storageutils.NewDriverOpts{
		ProviderType: c.viper.GetString("storage.provider"),
		SQLitePath:   c.viper.GetString("storage.sqlite_path"),
		PostgresDSN:  c.viper.GetString("storage.postgres_dsn"),
		Logger:       c.logger,
	}

	if opts.ProviderType == "sqlite" && opts.SQLitePath == "" {
		path, err := dotdir.NewManager().Path(c.configDir, defaultSQLiteFile)
		if err == nil {
			opts.SQLitePath = path
		} else {
			c.logger.Warn("could not resolve .relay directory, using relay.db", "error", err)
			opts.SQLitePath = defaultSQLiteFile
		}
	}

	return opts
}
