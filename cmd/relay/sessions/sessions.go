// Package sessionscmder provides the sessions command for inspecting the
// session records of a conversation.
package sessionscmder

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/cliui"
	"github.com/papercomputeco/relay/pkg/config"
	"github.com/papercomputeco/relay/pkg/dotdir"
	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/storage"
	storageutils "github.com/papercomputeco/relay/pkg/storage/utils"
	"github.com/papercomputeco/relay/pkg/utils"
)

const sessionsLongDesc string = `Show the recorded sessions of a conversation.

Reads the configured session store (sqlite or postgres) and prints one line
per relay session in the conversation, oldest first, with its final state,
chunk and character counts, and duration.

Examples:
  relay sessions conv-42
  relay sessions conv-42 --sqlite ./relay.db`

const sessionsShortDesc string = "Show recorded sessions of a conversation"

type sessionsCommander struct {
	sqlitePath  string
	postgresDSN string
}

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{}

	cmd := &cobra.Command{
		Use:   "sessions <conversation-id>",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			opts, err := cmder.driverOpts(configDir)
			if err != nil {
				return err
			}

			driver, err := storageutils.NewDriver(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer driver.Close()

			return runSessions(cmd.Context(), cmd.OutOrStdout(), driver, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.postgresDSN, "postgres", "", "PostgreSQL connection string")

	return cmd
}

// driverOpts picks the store: explicit flags first, then the configured
// provider. The in-memory provider has nothing to read, so sqlite at
// .relay/relay.db is used instead.
func (c *sessionsCommander) driverOpts(configDir string) (*storageutils.NewDriverOpts, error) {
	opts := &storageutils.NewDriverOpts{Logger: logger.Nop()}

	switch {
	case c.sqlitePath != "":
		opts.ProviderType = "sqlite"
		opts.SQLitePath = c.sqlitePath
		return opts, nil
	case c.postgresDSN != "":
		opts.ProviderType = "postgres"
		opts.PostgresDSN = c.postgresDSN
		return opts, nil
	}

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v.GetString("storage.provider") == "postgres" {
		opts.ProviderType = "postgres"
		opts.PostgresDSN = v.GetString("storage.postgres_dsn")
		return opts, nil
	}

	opts.ProviderType = "sqlite"
	opts.SQLitePath = v.GetString("storage.sqlite_path")
	if opts.SQLitePath == "" {
		opts.SQLitePath, err = dotdir.NewManager().Path(configDir, "relay.db")
		if err != nil {
			return nil, err
		}
	}

	return opts, nil
}

func runSessions(ctx context.Context, w io.Writer, driver storage.Driver, conversationID string) error {
	records, err := driver.ListByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(w, "  %s No sessions recorded for %s\n", cliui.DimStyle.Render("●"), conversationID)
		return nil
	}

	fmt.Fprintf(w, "\n  %s  %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.IDStyle.Render(conversationID))
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render("Sessions:    "), cliui.ValueStyle.Render(strconv.Itoa(len(records))))

	for i, r := range records {
		fmt.Fprintf(w, "  %s %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.IDStyle.Render(r.ID),
			cliui.StateStyle.Render("["+r.State+"]"),
			fmt.Sprintf("%d chunks, %d chars, %d frames in %s",
				r.Chunks, r.Chars, r.Frames, cliui.FormatDuration(r.Duration())),
		)
		if r.Error != "" {
			fmt.Fprintf(w, "     %s\n", cliui.DimStyle.Render(utils.Truncate(r.Error, 72)))
		}
	}

	fmt.Fprintln(w)
	return nil
}
