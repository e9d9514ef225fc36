// Package initcmder provides the init command for initializing a local .verity
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/dotdir"
)

const fetchTimeout = 10 * time.Second

const initLongDesc string = `Initialize a new .verity/ directory in the current working directory.

Creates a local .verity/ directory that takes precedence over the default
~/.verity/ directory for configuration, the SQLite fact store and ingest
checkpoints, and writes a config.toml into it unless one exists.

This is useful for keeping a separate knowledge base per project or directory.

Use --preset to start from a deployment preset or from a config.toml served
over HTTP:
  local      SQLite store in the .verity/ directory, no event stream
  memory     In-memory store, useful for trying verity out
  postgres   PostgreSQL store on localhost with Kafka resolution events

Examples:
  verity init
  verity init --preset postgres
  verity init --preset https://example.com/verity/config.toml`

const initShortDesc string = "Initialize a local .verity/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or config.toml URL")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	// Resolve the preset first so a bad name leaves nothing behind.
	cfg, err := c.resolvePreset(ctx)
	if err != nil {
		return err
	}

	dir, created, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(c.out, "Initialized .verity directory: %s\n", dir)
	} else {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	switch {
	case err == nil && c.preset == "":
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Wrote %s\n", cfger.GetTarget())
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

// fetchConfig downloads and parses a remote config.toml.
func fetchConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching config: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
