package factscmder_test

import (
	"bytes"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	factscmder "github.com/papercomputeco/verity/cmd/verity/facts"
	"github.com/papercomputeco/verity/pkg/fact"
)

var _ = Describe("NewFactsCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := factscmder.NewFactsCmd()
		Expect(cmd.Use).To(Equal("facts"))
	})

	It("rejects positional arguments", func() {
		cmd := factscmder.NewFactsCmd()
		Expect(cmd.Args(cmd, []string{"u1"})).NotTo(Succeed())
	})
})

var _ = Describe("PrintFacts", func() {
	since := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	It("groups facts by kind with their identity and status", func() {
		var buf bytes.Buffer
		factscmder.PrintFacts(&buf, []*fact.Fact{
			{
				ID: "f-1", Kind: fact.KindRelational, Subject: "Acme", Predicate: "industry",
				Value: "SaaS", ConfidenceScore: 0.8, SourceAuthority: "CHAT",
				VerificationStatus: fact.StatusProvisional, ValidFrom: since,
			},
			{
				ID: "f-2", Kind: fact.KindRisk, Title: "Key customer churn",
				Value: "high", ConfidenceScore: 0.95, SourceAuthority: "CRM",
				VerificationStatus: fact.StatusVerified, ValidFrom: since,
			},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("relational"))
		Expect(out).To(ContainSubstring("risk"))
		Expect(out).To(ContainSubstring("Acme.industry"))
		Expect(out).To(ContainSubstring("Key customer churn"))
		Expect(out).To(ContainSubstring("PROVISIONAL"))
		Expect(out).To(ContainSubstring("confidence 0.9500"))
		Expect(out).To(ContainSubstring("since 2026-03-01"))
	})

	It("truncates long values", func() {
		var buf bytes.Buffer
		factscmder.PrintFacts(&buf, []*fact.Fact{{
			ID: "f-3", Kind: fact.KindContext, ContextKey: "mission",
			Value: strings.Repeat("x", 200), VerificationStatus: fact.StatusProvisional, ValidFrom: since,
		}})
		Expect(buf.String()).To(ContainSubstring(strings.Repeat("x", 69) + "..."))
		Expect(buf.String()).NotTo(ContainSubstring(strings.Repeat("x", 70)))
	})

	It("says so when there are none", func() {
		var buf bytes.Buffer
		factscmder.PrintFacts(&buf, nil)
		Expect(buf.String()).To(Equal("No active facts.\n"))
	})
})
