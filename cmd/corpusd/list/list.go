// Package listcmder provides the list command for browsing the corpus
// catalog.
package listcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
	"github.com/corpusd/corpusd/pkg/utils"
)

type listCommander struct {
	author    string
	docType   string
	from      string
	to        string
	sortBy    string
	sortOrder string
	limit     int
	offset    int

	configDir string
	debug     bool
	logger    *zap.Logger
}

const listLongDesc string = `List documents in the corpus.

Shows the catalog of indexed documents, newest first by default. Filter
flags narrow the listing by declared metadata; date bounds accept a bare
year (YYYY) or a full date (YYYY-MM-DD) and are inclusive.

Sortable columns: id, title, author, publication_date, doc_type,
date_added.

Examples:
  corpusd list
  corpusd list --author "Ada Lovelace"
  corpusd list --type pdf --from 2017 --to 2020
  corpusd list --sort title --order asc --limit 20`

const listShortDesc string = "List documents in the corpus"

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Filter by author")
	cmd.Flags().StringVar(&cmder.docType, "type", "", "Filter by document type")
	cmd.Flags().StringVar(&cmder.from, "from", "", "Earliest publication date (YYYY or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.to, "to", "", "Latest publication date (YYYY or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.sortBy, "sort", "", "Sort column (default date_added)")
	cmd.Flags().StringVar(&cmder.sortOrder, "order", "", "Sort order: asc or desc (default desc)")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum documents to show")
	cmd.Flags().IntVar(&cmder.offset, "offset", 0, "Documents to skip")

	return cmd
}

func (c *listCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

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

	filter := catalog.Filter{
		Author:        c.author,
		DocType:       corpus.DocType(c.docType),
		PublishedFrom: c.from,
		PublishedTo:   c.to,
	}
	page := catalog.Page{
		Offset:    c.offset,
		Limit:     c.limit,
		SortBy:    c.sortBy,
		SortOrder: c.sortOrder,
	}

	docs, err := eng.List(context.Background(), filter, page)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("\n  %-36s  %-40s  %-20s  %-10s  %-5s  %s\n",
		cliui.TitleStyle.Render("ID"),
		cliui.TitleStyle.Render("TITLE"),
		cliui.TitleStyle.Render("AUTHOR"),
		cliui.TitleStyle.Render("PUBLISHED"),
		cliui.TitleStyle.Render("TYPE"),
		cliui.TitleStyle.Render("ADDED"),
	)

	for _, doc := range docs {
		fmt.Printf("  %-36s  %-40s  %-20s  %-10s  %-5s  %s\n",
			cliui.KeyStyle.Render(doc.ID.String()),
			cliui.ValueStyle.Render(utils.Truncate(doc.Title, 40)),
			cliui.ValueStyle.Render(utils.Truncate(doc.Author, 20)),
			cliui.DimStyle.Render(doc.PublicationDate),
			cliui.DimStyle.Render(string(doc.DocType)),
			cliui.DimStyle.Render(doc.DateAdded.Format("2006-01-02")),
		)
	}

	fmt.Printf("\n  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d document(s)", len(docs))))

	return nil
}
