// Package initcmder provides the init command for initializing a local .relay
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/config"
)

const (
	dirName = ".relay"
)

const initLongDesc string = `Initialize a new .relay/ directory in the current working directory.

Creates a local .relay/ directory that takes precedence over the default
~/.relay/ directory for configuration and the SQLite session store, and
writes a config.toml with default values if none exists.

Use --storage to pick the session store recorded in the new config.

Examples:
  relay init
  relay init --storage sqlite`

const initShortDesc string = "Initialize a local .relay/ directory"

type initCommander struct {
	storage string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.storage, "storage", "", "Session store to configure (inmemory, sqlite, postgres)")

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .relay directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .relay directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil:
		// Existing config is left alone apart from an explicit --storage.
	case errors.Is(err, os.ErrNotExist):
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote default config: %s\n", cfger.GetTarget())
	default:
		return fmt.Errorf("reading config: %w", err)
	}

	if c.storage == "" {
		return nil
	}

	if err := cfger.SetConfigValue("storage.provider", c.storage); err != nil {
		return err
	}
	if c.storage == "sqlite" {
		if err := cfger.SetConfigValue("storage.sqlite_path", filepath.Join(dir, "relay.db")); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "Configured %s storage\n", c.storage)

	return nil
}
