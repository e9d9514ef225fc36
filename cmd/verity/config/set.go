package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key in the config.toml file stored in the .verity/ directory.
Values are validated before saving: providers must be known and thresholds,
tolerances and authority weights must lie in [0,1]. Setting an authority
weight to "" drops the override.

Examples:
  verity config set storage.provider sqlite
  verity config set eventstream.brokers kafka-1:9092,kafka-2:9092
  verity config set resolver.verified_threshold 0.95
  verity config set authority.weights.DOCUMENT 0.85`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
	}

	return cmd
}

func runSet(w io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	if value == "" && strings.HasPrefix(key, config.AuthorityKeyPrefix) {
		fmt.Fprintf(w, "  %s Reset %s %s\n\n",
			cliui.SuccessMark,
			cliui.KeyStyle.Render(key),
			cliui.DimStyle.Render(unsetLabel(key)),
		)
		return nil
	}

	fmt.Fprintf(w, "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
