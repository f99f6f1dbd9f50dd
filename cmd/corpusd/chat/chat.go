// Package chatcmder provides the chat command for grounded question
// answering over the corpus.
package chatcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/catalog"
	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/credentials"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
	"github.com/corpusd/corpusd/pkg/rag"
	"github.com/corpusd/corpusd/pkg/utils"
)

type chatCommander struct {
	question string
	system   string
	author   string
	docType  string
	from     string
	to       string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const chatLongDesc string = `Ask a question answered from the corpus.

Retrieves the most relevant passages, sends them to the configured LLM,
and prints a grounded answer with numbered citations back to the source
documents. When nothing relevant is found, the command says so instead
of letting the model guess.

Filter flags restrict retrieval to matching documents, so answers can
be scoped to one author or time period.

Examples:
  corpusd chat "What problem does multi-head attention solve?"
  corpusd chat "Summarize the scaling results" --author "Kaplan"
  corpusd chat "What changed in v2?" --system "Answer in one sentence."`

const chatShortDesc string = "Ask a question answered from the corpus"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.system, "system", "", "Override the system prompt for this question")
	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Filter by author")
	cmd.Flags().StringVar(&cmder.docType, "type", "", "Filter by document type")
	cmd.Flags().StringVar(&cmder.from, "from", "", "Earliest publication date (YYYY or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.to, "to", "", "Latest publication date (YYYY or YYYY-MM-DD)")

	return cmd
}

func (c *chatCommander) run() error {
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

	req := rag.Request{
		Question:     c.question,
		SystemPrompt: c.system,
		Filter: catalog.Filter{
			Author:        c.author,
			DocType:       corpus.DocType(c.docType),
			PublishedFrom: c.from,
			PublishedTo:   c.to,
		},
	}

	var answer corpus.Answer
	err = cliui.Step(os.Stdout, "Thinking", func() error {
		var chatErr error
		answer, chatErr = eng.Chat(context.Background(), req)
		return chatErr
	})
	if err != nil {
		return err
	}

	rendered, err := cliui.RenderMarkdown(answer.Text)
	if err != nil {
		rendered = answer.Text
	}
	fmt.Println(rendered)

	if len(answer.Citations) > 0 {
		fmt.Printf("%s\n", cliui.TitleStyle.Render("Sources:"))
		for i, citation := range answer.Citations {
			printCitation(i+1, citation)
		}
	}

	return nil
}

func printCitation(n int, citation corpus.Citation) {
	doc := citation.Document

	source := doc.Title
	if doc.Author != "" {
		source += " · " + doc.Author
	}
	if doc.PublicationDate != "" {
		source += " (" + doc.PublicationDate + ")"
	}

	fmt.Printf("  %s %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("[%d]", n)),
		cliui.ValueStyle.Render(source),
	)
	fmt.Printf("      %s\n",
		cliui.DimStyle.Render(utils.Truncate(citation.Snippet, 100)),
	)
}
