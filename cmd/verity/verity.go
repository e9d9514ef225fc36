// Package veritycmder
package veritycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/verity/cmd/verity/config"
	conflictscmder "github.com/papercomputeco/verity/cmd/verity/conflicts"
	factscmder "github.com/papercomputeco/verity/cmd/verity/facts"
	ingestcmder "github.com/papercomputeco/verity/cmd/verity/ingest"
	initcmder "github.com/papercomputeco/verity/cmd/verity/init"
	"github.com/papercomputeco/verity/cmd/verity/stack"
	verifycmder "github.com/papercomputeco/verity/cmd/verity/verify"
	watchcmder "github.com/papercomputeco/verity/cmd/verity/watch"
	versioncmder "github.com/papercomputeco/verity/cmd/version"
)

const verityLongDesc string = `Verity keeps a user's fact knowledge base consistent.

Every extracted fact candidate is matched against the facts already stored
for its identity and resolved to exactly one action: INSERT, CONFIRM,
UPDATE, CONTESTED or SKIP.

Commands:
  verity verify       Verify and store a single candidate
  verity ingest       Verify a JSONL batch of candidates
  verity watch        Ingest batches spooled into a directory
  verity facts        List active facts
  verity conflicts    List conflicts awaiting review
  verity config       Manage persistent configuration`

const verityShortDesc string = "Verity - Fact Truth Maintenance"

func NewVerityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verity",
		Short:         verityShortDesc,
		Long:          verityLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP(stack.FlagDebug, "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(stack.FlagConfigDir, "", "Override the .verity/ config directory")
	cmd.PersistentFlags().String(stack.FlagLogFile, "", "Also write JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(verifycmder.NewVerifyCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(factscmder.NewFactsCmd())
	cmd.AddCommand(conflictscmder.NewConflictsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
