// Package statuscmder provides the status command for corpus-wide
// counters.
package statuscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/logger"
)

type statusCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const statusLongDesc string = `Show corpus status.

Reports document, chunk, and vector counts along with the configured
backends. A vector count that differs from the chunk count usually
means an interrupted ingestion or deletion; corpusd repair restores the
invariant.

Examples:
  corpusd status`

const statusShortDesc string = "Show corpus status"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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

	return cmd
}

func (c *statusCommander) run() error {
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

	status, err := eng.Status(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %d\n", cliui.KeyStyle.Render("documents"), status.Documents)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("chunks"), status.Chunks)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("vectors"), status.Vectors)
	fmt.Println()
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("catalog"), cliui.ValueStyle.Render(status.CatalogBackend))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("vector store"), cliui.ValueStyle.Render(status.VectorBackend))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("embedding model"), cliui.ValueStyle.Render(status.EmbeddingModel))

	if status.Chunks != status.Vectors {
		fmt.Printf("\n  %s chunk and vector counts differ; run 'corpusd repair'\n", cliui.FailMark)
	}

	return nil
}
