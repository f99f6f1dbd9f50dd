// Package ingestcmder provides the ingest command for adding documents
// to the corpus.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/corpus"
	"github.com/corpusd/corpusd/pkg/credentials"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/ingest"
	"github.com/corpusd/corpusd/pkg/logger"
)

type ingestCommander struct {
	file      string
	title     string
	author    string
	published string
	docType   string
	id        string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const ingestLongDesc string = `Ingest a document into the corpus.

Reads the file, extracts its text, chunks and embeds it, and indexes the
result for retrieval. The document only becomes visible once the whole
pipeline has committed; a failure at any stage leaves the corpus
unchanged.

Re-running the same file is a no-op: the content hash is checked against
prior ingestions before any work is done. Pass --id with an existing
document ID to re-ingest updated content under the same identity; the
new version atomically replaces the old one.

The document type is inferred from the file extension unless --type is
given. Text is extracted natively for txt, md, and html; pdf and docx
are accepted as declared types but fail until an extractor for them is
registered.

Examples:
  corpusd ingest paper.html --title "Attention Is All You Need"
  corpusd ingest notes.md --title "Meeting Notes" --author "Ada Lovelace"
  corpusd ingest paper.html --title "Attention v2" --id 6a2f...`

const ingestShortDesc string = "Ingest a document into the corpus"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.file = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Document title (required)")
	cmd.Flags().StringVarP(&cmder.author, "author", "a", "", "Document author")
	cmd.Flags().StringVar(&cmder.published, "published", "", "Publication date (YYYY or YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.docType, "type", "", "Document type (inferred from extension when empty)")
	cmd.Flags().StringVar(&cmder.id, "id", "", "Existing document ID to re-ingest under")

	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func (c *ingestCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	data, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.file, err)
	}

	docType := corpus.DocType(strings.ToLower(c.docType))
	if docType == "" {
		docType = inferDocType(c.file)
	}

	req := ingest.Request{
		Data: data,
		Metadata: corpus.Metadata{
			Title:           c.title,
			Author:          c.author,
			PublicationDate: c.published,
			DocType:         docType,
		},
	}

	if c.id != "" {
		docID, err := uuid.Parse(c.id)
		if err != nil {
			return fmt.Errorf("invalid document ID %q: %w", c.id, err)
		}
		req.DocumentID = docID
	}

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

	var result ingest.Result
	err = cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", filepath.Base(c.file)), func() error {
		var ingestErr error
		result, ingestErr = eng.Ingest(context.Background(), req)
		return ingestErr
	})
	if err != nil {
		return err
	}

	if result.AlreadyIngested {
		fmt.Printf("\n  %s Already ingested %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render("(content hash matched a prior ingestion)"),
		)
	}

	doc := result.Document
	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("id"), cliui.ValueStyle.Render(doc.ID.String()))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("revision"), cliui.ValueStyle.Render(doc.Revision.String()))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("title"), cliui.ValueStyle.Render(doc.Title))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("type"), cliui.ValueStyle.Render(string(doc.DocType)))
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("chunks"), doc.ChunkCount)

	return nil
}

func inferDocType(path string) corpus.DocType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return corpus.DocTypePDF
	case ".docx":
		return corpus.DocTypeDOCX
	case ".html", ".htm":
		return corpus.DocTypeHTML
	case ".md", ".markdown":
		return corpus.DocTypeMD
	default:
		return corpus.DocTypeTXT
	}
}
