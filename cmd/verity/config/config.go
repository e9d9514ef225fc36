// Package configcmder provides the config command for managing persistent
// verity configuration stored in the .verity/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent verity configuration.

Configuration is stored as config.toml in the .verity/ directory and provides
default values for command flags. CLI flags and VERITY_ environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  matcher.title_similarity, matcher.numeric_tolerance,
  resolver.verified_threshold,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  ingest.workers, ingest.queue_size

Authority weights live in the [authority.weights] table of config.toml and
are addressed as authority.weights.<NAME>, e.g. authority.weights.CRM. Setting
one to "" restores the built in weight.

Use subcommands to get, set, or list configuration values:
  verity config set <key> <value>    Set a configuration value
  verity config get <key>            Get a configuration value
  verity config list                 List all configuration values

Examples:
  verity config set storage.provider postgres
  verity config set matcher.title_similarity 0.85
  verity config set authority.weights.CHAT 0.4
  verity config get storage.provider`

const configShortDesc string = "Manage persistent verity configuration"

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
