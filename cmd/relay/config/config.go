// Package configcmder provides the config command for managing persistent
// relay configuration stored in the .relay/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent relay configuration.

Configuration is stored as config.toml in the .relay/ directory and provides
default values for command flags. CLI flags and RELAY_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  relay.listen,
  upstream.url, upstream.bot_app_key, upstream.timeout, upstream.idle_timeout,
  segment.min_chars, segment.markers, decoder.max_buffer,
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  events.provider, events.brokers, events.topic,
  metrics.namespace

Use subcommands to get, set, or list configuration values:
  relay config set <key> <value>    Set a configuration value
  relay config get <key>            Get a configuration value
  relay config list                 List all configuration values

Examples:
  relay config set upstream.bot_app_key abc123
  relay config set segment.min_chars 60
  relay config get storage.provider
  relay config list`

const configShortDesc string = "Manage persistent relay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
