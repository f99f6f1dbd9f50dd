// Package repaircmder provides the repair command for reconciling the
// corpus stores.
package repaircmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/pkg/cliui"
	"github.com/corpusd/corpusd/pkg/config"
	"github.com/corpusd/corpusd/pkg/credentials"
	"github.com/corpusd/corpusd/pkg/engine"
	"github.com/corpusd/corpusd/pkg/ingest"
	"github.com/corpusd/corpusd/pkg/logger"
)

type repairCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const repairLongDesc string = `Reconcile the corpus stores.

Sweeps every committed document and restores the vector index to
exactly the current revision's chunks, re-embedding from chunk text
held in the catalog. Documents whose stored content has gone missing
are reported; their catalog entries and search results stay usable, but
they can no longer be re-ingested from the original bytes. Vectors and
content blobs left behind by interrupted deletes are garbage-collected.

The sweep is idempotent. Running it on a healthy corpus changes
nothing.

Examples:
  corpusd repair`

const repairShortDesc string = "Reconcile the corpus stores"

func NewRepairCmd() *cobra.Command {
	cmder := &repairCommander{}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: repairShortDesc,
		Long:  repairLongDesc,
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

func (c *repairCommander) run() error {
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

	var report ingest.RepairReport
	err = cliui.Step(os.Stdout, "Repairing corpus", func() error {
		var repairErr error
		report, repairErr = eng.Repair(context.Background())
		return repairErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %d\n", cliui.KeyStyle.Render("documents checked"), report.DocumentsChecked)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("chunks reindexed"), report.ChunksReindexed)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("orphan vectors removed"), report.OrphanVectorsRemoved)
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("orphan blobs removed"), report.OrphanBlobsRemoved)

	if len(report.MissingContent) > 0 {
		fmt.Printf("\n  %s %d document(s) with missing content:\n",
			cliui.FailMark, len(report.MissingContent))
		for _, id := range report.MissingContent {
			fmt.Printf("    %s\n", cliui.DimStyle.Render(id.String()))
		}
	}

	return nil
}
