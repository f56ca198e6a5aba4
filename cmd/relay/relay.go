// Package relaycmder is the root command of the relay CLI.
package relaycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/relay/cmd/relay/config"
	initcmder "github.com/papercomputeco/relay/cmd/relay/init"
	servecmder "github.com/papercomputeco/relay/cmd/relay/serve"
	sessionscmder "github.com/papercomputeco/relay/cmd/relay/sessions"
	versioncmder "github.com/papercomputeco/relay/cmd/version"
)

const relayLongDesc string = `Relay streams answers from an upstream chat service and re-emits them
in sentence-aligned chunks sized for speech synthesis and avatar playback.

Run the server using:
  relay serve                  Run the relay

Manage state using:
  relay init                   Create a local .relay/ directory
  relay config                 Get, set, and list configuration
  relay sessions <id>          Show recorded sessions of a conversation`

const relayShortDesc string = "Relay - resegmenting SSE streaming relay"

func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        relayShortDesc,
		Long:         relayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .relay/ directory (default: ./.relay or ~/.relay)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
