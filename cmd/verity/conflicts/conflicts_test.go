package conflictscmder_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	conflictscmder "github.com/papercomputeco/verity/cmd/verity/conflicts"
	"github.com/papercomputeco/verity/pkg/fact"
)

var _ = Describe("NewConflictsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := conflictscmder.NewConflictsCmd()
		Expect(cmd.Use).To(Equal("conflicts"))
	})

	It("requires --user", func() {
		cmd := conflictscmder.NewConflictsCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("required flag")))
	})
})

var _ = Describe("PrintConflicts", func() {
	It("shows both sides of each conflict", func() {
		var buf bytes.Buffer
		conflictscmder.PrintConflicts(&buf, []*fact.ConflictRecord{{
			ID:               "c-1",
			UserID:           "u1",
			FactKind:         fact.KindContext,
			FactTable:        "company_context",
			FactID:           "f-9",
			ConflictType:     fact.ConflictValueMismatch,
			ResolutionStatus: fact.ResolutionPending,
			Details: fact.ConflictDetails{
				ExistingValue:      "March",
				NewValue:           "April",
				ExistingAuthority:  "CHAT",
				NewAuthority:       "CHAT",
				ExistingConfidence: 0.8,
				NewConfidence:      0.7,
			},
			CreatedAt: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
		}})

		out := buf.String()
		Expect(out).To(ContainSubstring("c-1"))
		Expect(out).To(ContainSubstring("company_context/f-9"))
		Expect(out).To(ContainSubstring("VALUE_MISMATCH"))
		Expect(out).To(ContainSubstring("March"))
		Expect(out).To(ContainSubstring("April"))
		Expect(out).To(ContainSubstring("2026-03-03 09:00"))
	})

	It("says so when there are none", func() {
		var buf bytes.Buffer
		conflictscmder.PrintConflicts(&buf, nil)
		Expect(buf.String()).To(Equal("No pending conflicts.\n"))
	})
})
