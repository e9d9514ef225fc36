// Package factscmder provides the facts command for listing a user's active
// facts.
package factscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/cmd/verity/stack"
	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
	"github.com/papercomputeco/verity/pkg/utils"
)

const maxValueLen = 72

type factsCommander struct {
	userID string
	kind   string
	scope  string
	asJSON bool

	store stack.StoreFlags
	out   io.Writer
}

const factsLongDesc string = `List a user's active facts.

Without --kind, facts of every kind are listed. --subject narrows relational
facts to one subject; for company context it selects a single key.

Examples:
  verity facts --user u1
  verity facts --user u1 --kind relational --subject Acme
  verity facts --user u1 --kind risk --json`

const factsShortDesc string = "List active facts"

func NewFactsCmd() *cobra.Command {
	cmder := &factsCommander{}

	cmd := &cobra.Command{
		Use:   "facts",
		Short: factsShortDesc,
		Long:  factsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "User whose facts to list")
	cmd.Flags().StringVarP(&cmder.kind, "kind", "k", "", "Only list this kind (relational, risk, context)")
	cmd.Flags().StringVar(&cmder.scope, "subject", "", "Relational subject or context key to narrow to")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print facts as JSON")
	_ = cmd.MarkFlagRequired("user")

	stack.AddStoreFlags(cmd, &cmder.store)

	return cmd
}

func (c *factsCommander) run(cmd *cobra.Command) error {
	kinds := []fact.Kind{fact.KindRelational, fact.KindRisk, fact.KindContext}
	if c.kind != "" {
		k, err := fact.ParseKind(c.kind)
		if err != nil {
			return err
		}
		kinds = []fact.Kind{k}
	}

	ctx := cmd.Context()
	s, err := stack.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var all []*fact.Fact
	for _, k := range kinds {
		var scope string
		switch k {
		case fact.KindRelational:
			scope = fact.RelationalKey{Subject: c.scope}.Scope()
		case fact.KindContext:
			scope = fact.ContextKey{Name: c.scope}.Scope()
		}

		facts, err := s.Driver.ActiveFacts(ctx, storage.FactQuery{UserID: c.userID, Kind: k, Scope: scope})
		if err != nil {
			return fmt.Errorf("listing %s facts: %w", k, err)
		}
		all = append(all, facts...)
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	PrintFacts(c.out, all)
	return nil
}

// PrintFacts renders facts grouped under a per-kind header.
func PrintFacts(w io.Writer, facts []*fact.Fact) {
	if len(facts) == 0 {
		fmt.Fprintln(w, "No active facts.")
		return
	}

	var current fact.Kind
	for _, f := range facts {
		if f.Kind != current {
			current = f.Kind
			lipgloss.Fprintf(w, "\n%s\n\n", cliui.HeaderStyle.Render(current.String()))
		}

		lipgloss.Fprintf(w, "  %s  %s = %s  %s\n",
			cliui.IDStyle.Render(f.ID),
			label(f),
			cliui.ValueStyle.Render(utils.Truncate(f.Value, maxValueLen)),
			cliui.Status(string(f.VerificationStatus)),
		)
		lipgloss.Fprintf(w, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf(
			"%s  confidence %.4f  since %s",
			f.SourceAuthority,
			f.ConfidenceScore,
			f.ValidFrom.Format("2006-01-02"),
		)))
	}
	fmt.Fprintln(w)
}

func label(f *fact.Fact) string {
	switch f.Kind {
	case fact.KindRelational:
		return f.Subject + "." + f.Predicate
	case fact.KindRisk:
		return f.Title
	default:
		return f.ContextKey
	}
}
