// Package corpusdcmder assembles the corpusd root command and its
// subcommand tree.
package corpusdcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/corpusd/corpusd/cmd/corpusd/auth"
	chatcmder "github.com/corpusd/corpusd/cmd/corpusd/chat"
	configcmder "github.com/corpusd/corpusd/cmd/corpusd/config"
	ingestcmder "github.com/corpusd/corpusd/cmd/corpusd/ingest"
	initcmder "github.com/corpusd/corpusd/cmd/corpusd/init"
	listcmder "github.com/corpusd/corpusd/cmd/corpusd/list"
	repaircmder "github.com/corpusd/corpusd/cmd/corpusd/repair"
	rmcmder "github.com/corpusd/corpusd/cmd/corpusd/rm"
	searchcmder "github.com/corpusd/corpusd/cmd/corpusd/search"
	statuscmder "github.com/corpusd/corpusd/cmd/corpusd/status"
	updatecmder "github.com/corpusd/corpusd/cmd/corpusd/update"
	versioncmder "github.com/corpusd/corpusd/cmd/version"
)

const corpusdLongDesc string = `Corpusd is a personal research corpus engine.

Ingest documents, then search and chat over them:
  corpusd init                   Initialize a local .corpusd/ directory
  corpusd ingest <file>          Ingest a document into the corpus
  corpusd search "<query>"       Semantic search over the corpus
  corpusd chat "<question>"      Ask a question grounded in the corpus`

const corpusdShortDesc string = "Corpusd - Personal Corpus Engine"

func NewCorpusdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpusd",
		Short: corpusdShortDesc,
		Long:  corpusdLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .corpusd directory location")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(rmcmder.NewRmCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(updatecmder.NewUpdateCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(repaircmder.NewRepairCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
