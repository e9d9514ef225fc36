// Package versioncmder provides the version command.
package versioncmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/pkg/eventstream"
	"github.com/papercomputeco/verity/pkg/utils"
)

type versionCommander struct {
	out     io.Writer
	jsonOut bool
}

type versionReport struct {
	utils.BuildInfo
	EventSchema int `json:"event_schema_version"`
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI and the resolution event schema it publishes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print as JSON")

	return cmd
}

func (c *versionCommander) run() error {
	r := versionReport{BuildInfo: utils.Build(), EventSchema: eventstream.SchemaVersionV1}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(c.out, "Version: %s\nSha: %s\nBuilt at: %s\nGo: %s\nEvent schema: v%d\n",
		r.Version, r.Sha, r.Buildtime, r.GoVersion, r.EventSchema)
	return nil
}
