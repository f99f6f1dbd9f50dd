// Package updatecmder provides the update command for editing document
// metadata.
package updatecmder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
)

type updateCommander struct {
	id        string
	title     string
	author    string
	published string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const updateLongDesc string = `Update a document's metadata.

Changes the declared title, author, or publication date without
touching the stored content, chunks, or vectors. Only the flags given
are changed. To replace the content itself, re-ingest with
corpusd ingest --id.

Examples:
  corpusd update 6a2f... --title "Attention Is All You Need"
  corpusd update 6a2f... --author "Vaswani et al." --published 2017`

const updateShortDesc string = "Update a document's metadata"

func NewUpdateCmd() *cobra.Command {
	cmder := &updateCommander{}

	cmd := &cobra.Command{
		Use:   "update <document-id>",
		Short: updateShortDesc,
		Long:  updateLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.id = args[0]

			if !cmd.Flags().Changed("title") &&
				!cmd.Flags().Changed("author") &&
				!cmd.Flags().Changed("published") {
				return fmt.Errorf("nothing to update: pass --title, --author, or --published")
			}

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			update := catalog.MetadataUpdate{}
			if cmd.Flags().Changed("title") {
				update.Title = &cmder.title
			}
			if cmd.Flags().Changed("author") {
				update.Author = &cmder.author
			}
			if cmd.Flags().Changed("published") {
				update.PublicationDate = &cmder.published
			}

			return cmder.run(update)
		},
	}

	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "New author")
	cmd.Flags().StringVar(&cmder.published, "published", "", "New publication date (YYYY or YYYY-MM-DD)")

	return cmd
}

func (c *updateCommander) run(update catalog.MetadataUpdate) error {
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

	doc, err := eng.UpdateMetadata(context.Background(), docID, update)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Updated %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(doc.ID.String()))
	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("title"), cliui.ValueStyle.Render(doc.Title))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("author"), cliui.ValueStyle.Render(doc.Author))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("published"), cliui.ValueStyle.Render(doc.PublicationDate))

	return nil
}
