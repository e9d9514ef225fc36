// Package verifycmder provides the verify command for resolving a single
// fact candidate against the store.
package verifycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/cmd/verity/stack"
	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/tms"
)

type verifyCommander struct {
	kind      string
	data      fact.Data
	validFrom string
	asJSON    bool

	store stack.StoreFlags
	out   io.Writer
}

const verifyLongDesc string = `Verify a single fact candidate and store the outcome.

The candidate is matched against the active facts for its identity and
resolved to exactly one action:

  INSERT      nothing comparable is stored yet
  CONFIRM     an identical value is stored; its confidence is boosted
  UPDATE      the stored fact is superseded by a newer or more authoritative one
  CONTESTED   an equally authoritative source disagrees; a conflict is recorded
  SKIP        the stored fact comes from a more authoritative source

Identity flags depend on --kind:
  relational   --subject and --predicate
  risk         --title
  context      --key

Examples:
  verity verify --user u1 --kind relational --subject Acme --predicate industry --value SaaS
  verity verify --user u1 --kind context --key fiscal_year_end --value March --authority USER_DIRECT
  verity verify --user u1 --kind risk --title "Key customer churn" --value high --valid-from 2026-03-01`

const verifyShortDesc string = "Verify and store a single fact candidate"

func NewVerifyCmd() *cobra.Command {
	cmder := &verifyCommander{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: verifyShortDesc,
		Long:  verifyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.data.UserID, "user", "u", "", "User the fact belongs to")
	cmd.Flags().StringVarP(&cmder.kind, "kind", "k", "relational", "Fact kind (relational, risk, context)")
	cmd.Flags().StringVar(&cmder.data.Subject, "subject", "", "Relational fact subject")
	cmd.Flags().StringVar(&cmder.data.Predicate, "predicate", "", "Relational fact predicate")
	cmd.Flags().StringVar(&cmder.data.Title, "title", "", "Risk title")
	cmd.Flags().StringVar(&cmder.data.Key, "key", "", "Company context key")
	cmd.Flags().StringVar(&cmder.data.Value, "value", "", "Fact value")
	cmd.Flags().Float64Var(&cmder.data.Confidence, "confidence", 0.8, "Extraction confidence in [0,1]")
	cmd.Flags().StringVarP(&cmder.data.SourceAuthority, "authority", "a", "CHAT", "Source authority (USER_DIRECT, ERP, CRM, CHAT, ...)")
	cmd.Flags().StringVar(&cmder.validFrom, "valid-from", "", "When the value became true (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("value")

	stack.AddStoreFlags(cmd, &cmder.store)

	return cmd
}

func (c *verifyCommander) run(cmd *cobra.Command) error {
	if c.validFrom != "" {
		t, err := ParseValidFrom(c.validFrom)
		if err != nil {
			return err
		}
		c.data.ValidFrom = &fact.Timestamp{Time: t}
	}

	ctx := cmd.Context()

	s, err := stack.Open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Engine.VerifyAndStoreFact(ctx, c.kind, c.data)
	if err != nil {
		return fmt.Errorf("verifying candidate: %w", err)
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	PrintResult(c.out, res)
	return nil
}

// PrintResult renders a verification result for the terminal.
func PrintResult(w io.Writer, res *tms.Result) {
	fmt.Fprintf(w, "\n  %s  %s\n\n", cliui.Action(res.Action.String()), res.Message)
	cliui.Field(w, "fact", res.FactID)
	cliui.Field(w, "supersedes", res.SupersededID)
	cliui.Field(w, "conflict", res.ConflictID)
	cliui.Field(w, "reason", res.Reason)
	if res.Confidence > 0 {
		cliui.Field(w, "confidence", fmt.Sprintf("%.4f", res.Confidence))
	}
	cliui.Field(w, "status", string(res.Status))
	fmt.Fprintln(w)
}

// ParseValidFrom accepts an RFC 3339 timestamp or a plain date, read as UTC.
func ParseValidFrom(s string) (time.Time, error) {
	t, err := fact.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--valid-from: %w", err)
	}
	return t, nil
}
