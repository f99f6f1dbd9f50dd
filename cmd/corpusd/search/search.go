// Package searchcmder provides the search command for semantic search
// over the corpus.
package searchcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/credentials"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
	"github.com/corpusd/corpusd/pkg/retrieval"
)

type searchCommander struct {
	query   string
	topK    int
	author  string
	docType string
	from    string
	to      string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const searchLongDesc string = `Search the corpus semantically.

Embeds the query and returns the most similar passages across all
indexed documents, best match first. Each result names its source
document and the span of the original text it came from. Filter flags
narrow the candidate set by declared metadata before similarity is
scored.

Examples:
  corpusd search "attention mechanisms in transformers"
  corpusd search "gradient descent" --top 10
  corpusd search "scaling laws" --author "Kaplan" --from 2020`

const searchShortDesc string = "Search the corpus semantically"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to return")
	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Filter by author")
	cmd.Flags().StringVar(&cmder.docType, "type", "", "Filter by document type")
	cmd.Flags().StringVar(&cmder.from, "from", "", "Earliest publication date (YYYY or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.to, "to", "", "Latest publication date (YYYY or YYYY-MM-DD)")

	return cmd
}

func (c *searchCommander) run() error {
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

	if credmgr, credErr := credentials.NewManager(c.configDir); credErr == nil {
		if err := credmgr.InjectEnv(); err != nil {
			c.logger.Warn("could not inject stored credentials", zap.Error(err))
		}
	}

	eng, err := engine.Open(cfg, cfger.Dir(), c.logger)
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer eng.Close()

	results, err := eng.Search(context.Background(), retrievalQuery(c))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		cliui.TitleStyle.Render("Results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for _, result := range results {
		printResult(result)
	}

	return nil
}

func printResult(result corpus.SearchResult) {
	doc := result.Document

	source := doc.Title
	if doc.Author != "" {
		source += " · " + doc.Author
	}
	if doc.PublicationDate != "" {
		source += " (" + doc.PublicationDate + ")"
	}

	fmt.Printf("  %s %s %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("%d.", result.Rank)),
		cliui.ValueStyle.Render(source),
		cliui.ScoreStyle.Render(fmt.Sprintf("score=%.4f", result.Score)),
	)
	fmt.Printf("     %s\n",
		cliui.DimStyle.Render(fmt.Sprintf("%s  bytes %d-%d", result.ChunkID, result.Anchor.Start, result.Anchor.End)),
	)

	snippet := strings.ReplaceAll(result.Snippet, "\n", " ")
	fmt.Printf("     %s\n\n", cliui.ValueStyle.Render(snippet))
}

func retrievalQuery(c *searchCommander) retrieval.Query {
	return retrieval.Query{
		Text: c.query,
		TopK: c.topK,
		Filter: catalog.Filter{
			Author:        c.author,
			DocType:       corpus.DocType(c.docType),
			PublishedFrom: c.from,
			PublishedTo:   c.to,
		},
	}
}
