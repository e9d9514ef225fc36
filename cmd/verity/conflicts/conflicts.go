// Package conflictscmder provides the conflicts command for listing conflicts
// awaiting human review.
package conflictscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/cmd/verity/stack"
	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/utils"
)

const maxValueLen = 60

type conflictsCommander struct {
	userID string
	asJSON bool

	store stack.StoreFlags
	out   io.Writer
}

const conflictsLongDesc string = `List a user's conflicts awaiting review.

A conflict is recorded when two equally authoritative sources disagree on a
fact's value. The stored fact stays active and CONTESTED; the other side is
kept only in the conflict record.

Examples:
  verity conflicts --user u1
  verity conflicts --user u1 --json`

const conflictsShortDesc string = "List conflicts awaiting review"

func NewConflictsCmd() *cobra.Command {
	cmder := &conflictsCommander{}

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: conflictsShortDesc,
		Long:  conflictsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "User whose conflicts to list")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print conflicts as JSON")
	_ = cmd.MarkFlagRequired("user")

	stack.AddStoreFlags(cmd, &cmder.store)

	return cmd
}

func (c *conflictsCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := stack.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	conflicts, err := s.Engine.PendingConflicts(ctx, c.userID)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}

	PrintConflicts(c.out, conflicts)
	return nil
}

// PrintConflicts renders each conflict with both sides of the disagreement.
func PrintConflicts(w io.Writer, conflicts []*fact.ConflictRecord) {
	if len(conflicts) == 0 {
		fmt.Fprintln(w, "No pending conflicts.")
		return
	}

	fmt.Fprintln(w)
	for _, cr := range conflicts {
		lipgloss.Fprintf(w, "  %s %s\n", cliui.FailMark, cliui.IDStyle.Render(cr.ID))
		cliui.Field(w, "fact", fmt.Sprintf("%s/%s", cr.FactTable, cr.FactID))
		cliui.Field(w, "type", string(cr.ConflictType))
		cliui.Field(w, "stored", side(cr.Details.ExistingValue, cr.Details.ExistingAuthority, cr.Details.ExistingConfidence))
		cliui.Field(w, "incoming", side(cr.Details.NewValue, cr.Details.NewAuthority, cr.Details.NewConfidence))
		cliui.Field(w, "detected", cliui.DimStyle.Render(cr.CreatedAt.Format("2006-01-02 15:04")))
		fmt.Fprintln(w)
	}
}

func side(value, authority string, confidence float64) string {
	return cliui.ValueStyle.Render(utils.Truncate(value, maxValueLen)) + cliui.DimStyle.Render(fmt.Sprintf("  %s %.4f", authority, confidence))
}
