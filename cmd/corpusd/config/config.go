// Package configcmder provides the config command for managing persistent
// corpusd configuration stored in the .corpusd/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent corpusd configuration.

Configuration is stored as config.toml in the .corpusd/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.catalog, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.metric,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  ingest.chunk_strategy, ingest.chunk_size, ingest.chunk_overlap,
  retrieval.top_k, retrieval.max_chunks_per_doc

Use subcommands to get, set, or list configuration values:
  corpusd config set <key> <value>    Set a configuration value
  corpusd config get <key>            Get a configuration value
  corpusd config list                 List all configuration values

Examples:
  corpusd config set embedding.model nomic-embed-text
  corpusd config set vector_store.provider sqlite
  corpusd config get llm.model
  corpusd config list`

const configShortDesc string = "Manage persistent corpusd configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
