package configcmder

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/fact"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .verity/ directory, followed by the effective
authority weight table with overrides marked.

Examples:
  verity config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(w, "Using config file: %s\n\n", target)
	} else {
		fmt.Fprint(w, "No config file found. Using default config.\n\n")
	}

	keys := config.ValidConfigKeys()

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range keys {
		if len(k) > maxLen {
			maxLen = len(k)
		}
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if value == "" {
			fmt.Fprintf(w, "%-*s = <not set>\n", maxLen, key)
		} else {
			fmt.Fprintf(w, "%-*s = %q\n", maxLen, key, value)
		}
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	overridden := make(map[string]bool, len(cfg.Authority.Weights))
	for name := range cfg.Authority.Weights {
		overridden[fact.NormalizeAuthority(name)] = true
	}

	table := fact.NewWeights(cfg.Authority.Weights).Table()
	fmt.Fprintln(w, "\n[authority.weights]")
	for _, name := range slices.Sorted(maps.Keys(table)) {
		line := fmt.Sprintf("%-*s = %g", maxLen, config.AuthorityKeyPrefix+name, table[name])
		if overridden[name] {
			line += "  (override)"
		}
		fmt.Fprintln(w, line)
	}

	return nil
}
