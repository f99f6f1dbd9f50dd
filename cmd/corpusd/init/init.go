// Package initcmder provides the init command for initializing a local
// .corpusd directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corpusd/corpusd/pkg/config"
)

const (
	dirName = ".corpusd"
)

const initLongDesc string = `Initialize a new .corpusd/ directory in the current working directory.

Creates a local .corpusd/ directory that takes precedence over the default
~/.corpusd/ directory for the content store, catalog, vector index, and
configuration. A config.toml with defaults is written if none exists.

This is useful for maintaining a separate corpus per project or directory.

Examples:
  corpusd init`

const initShortDesc string = "Initialize a local .corpusd/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .corpusd directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}
	if cfger.GetTarget() == "" {
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	fmt.Printf("Initialized .corpusd directory: %s\n", dir)
	return nil
}
