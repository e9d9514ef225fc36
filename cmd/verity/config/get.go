package configcmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/fact"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file stored in the
.verity/ directory. For an authority weight that is not overridden, the built
in weight is shown instead.

Examples:
  verity config get storage.provider
  verity config get matcher.title_similarity
  verity config get authority.weights.ERP`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir)
		},
	}

	return cmd
}

func runGet(w io.Writer, key, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger)

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	rendered := cliui.ValueStyle.Render(value)
	if value == "" {
		rendered = cliui.DimStyle.Render(unsetLabel(key))
	}
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), rendered)

	return nil
}

// unsetLabel describes a key with no value in config.toml.
func unsetLabel(key string) string {
	name, ok := strings.CutPrefix(key, config.AuthorityKeyPrefix)
	if !ok {
		return "<not set>"
	}
	w := fact.DefaultWeights().Weight(name)
	return "<default " + strconv.FormatFloat(w, 'f', -1, 64) + ">"
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s, %s<NAME>",
		key, strings.Join(config.ValidConfigKeys(), ", "), config.AuthorityKeyPrefix)
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	keys := config.ValidConfigKeys()
	for _, name := range []string{
		fact.AuthorityIntegratedSystem,
		fact.AuthorityUserUpload,
		fact.AuthorityDocument,
		fact.AuthorityExternalAPI,
		fact.AuthorityConversational,
		fact.AuthorityUnknown,
	} {
		keys = append(keys, config.AuthorityKeyPrefix+name)
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target == "" {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
		return
	}
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(target),
	)
}
