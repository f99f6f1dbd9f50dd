// Package rmcmder provides the rm command for removing documents from
// the corpus.
package rmcmder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
)

type rmCommander struct {
	id string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const rmLongDesc string = `Remove a document from the corpus.

Deletes the document's catalog entry, its vectors, and its stored
content. The document disappears from listings and search results
immediately; stale references held by older search results resolve as
not found rather than returning deleted content.

Examples:
  corpusd rm 6a2f0c1e-3b8d-4f2a-9c7e-1d5b8a4e2f90`

const rmShortDesc string = "Remove a document from the corpus"

func NewRmCmd() *cobra.Command {
	cmder := &rmCommander{}

	cmd := &cobra.Command{
		Use:   "rm <document-id>",
		Short: rmShortDesc,
		Long:  rmLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.id = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	return cmd
}

func (c *rmCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	docID, err := uuid.Parse(c.id)
	if err != nil {
		return fmt.Errorf("invalid document ID %q: %w", c.id, err)
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	eng, err := engine.Open(cfg, cfger.Dir(), c.logger)
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer eng.Close()

	if err := eng.Delete(context.Background(), docID); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(docID.String()))

	return nil
}
