package match_test

import (
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/match"
)

func withTolerance(m *match.Matcher, base, factor float64) bool {
	return m.Compatible(
		strconv.FormatFloat(base, 'f', -1, 64),
		strconv.FormatFloat(base*factor, 'f', -1, 64),
	)
}

func stored(kind fact.Kind, id fact.Identity, value string) *fact.Fact {
	f := &fact.Fact{
		ID:              "f-" + value,
		UserID:          "u1",
		Kind:            kind,
		IdentityKey:     id.Key(),
		Value:           value,
		SourceAuthority: "CHAT",
	}
	switch k := id.(type) {
	case fact.RelationalKey:
		f.Subject, f.Predicate = k.Subject, k.Predicate
	case fact.RiskKey:
		f.Title = k.Title
	case fact.ContextKey:
		f.ContextKey = k.Name
	}
	return f
}

var _ = Describe("Matcher", func() {
	var m *match.Matcher

	BeforeEach(func() {
		m = match.New(match.Config{})
	})

	It("falls back to defaults for out of range config", func() {
		Expect(match.New(match.Config{TitleSimilarity: 1.5}).TitleThreshold()).To(Equal(match.DefaultTitleSimilarity))
		Expect(match.New(match.Config{TitleSimilarity: 0.9}).TitleThreshold()).To(Equal(0.9))
	})

	Describe("relational facts", func() {
		industry := fact.RelationalKey{Subject: "Acme", Predicate: "industry"}
		revenue := fact.RelationalKey{Subject: "Acme", Predicate: "revenue"}

		It("classifies same predicate facts by value", func() {
			c := &fact.Candidate{UserID: "u1", Identity: industry, Value: "B2B SaaS"}
			matches := m.Classify(c, []*fact.Fact{
				stored(fact.KindRelational, industry, "SaaS"),
				stored(fact.KindRelational, industry, "E-commerce"),
			})
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Relationship).To(Equal(match.Identical))
			Expect(matches[1].Relationship).To(Equal(match.ValueConflict))
		})

		It("marks other predicates of the same subject as unrelated", func() {
			c := &fact.Candidate{UserID: "u1", Identity: industry, Value: "B2B SaaS"}
			matches := m.Classify(c, []*fact.Fact{stored(fact.KindRelational, revenue, "$3.2M")})
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Relationship).To(Equal(match.Unrelated))
		})

		It("ignores inactive facts and other users", func() {
			c := &fact.Candidate{UserID: "u1", Identity: industry, Value: "B2B SaaS"}

			closed := time.Now()
			old := stored(fact.KindRelational, industry, "Retail")
			old.ValidTo = &closed

			other := stored(fact.KindRelational, industry, "Retail")
			other.UserID = "u2"

			Expect(m.Classify(c, []*fact.Fact{old, other, nil})).To(BeEmpty())
		})
	})

	Describe("risk facts", func() {
		It("matches near-identical titles", func() {
			c := &fact.Candidate{UserID: "u1", Identity: fact.RiskKey{Title: "Key person dependency"}, Value: "high"}
			matches := m.Classify(c, []*fact.Fact{
				stored(fact.KindRisk, fact.RiskKey{Title: "Key-person dependancy"}, "High"),
				stored(fact.KindRisk, fact.RiskKey{Title: "Currency exposure"}, "low"),
			})
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Relationship).To(Equal(match.Identical))
			Expect(matches[0].Similarity).To(BeNumerically(">=", 0.8))
		})

		It("respects the configured threshold", func() {
			a, b := "Supplier concentration", "Supplier consolidation"
			sim := m.TitleSimilarity(a, b)

			loose := match.New(match.Config{TitleSimilarity: sim})
			strict := match.New(match.Config{TitleSimilarity: sim + 0.01})

			c := &fact.Candidate{UserID: "u1", Identity: fact.RiskKey{Title: a}, Value: "medium"}
			existing := []*fact.Fact{stored(fact.KindRisk, fact.RiskKey{Title: b}, "medium")}

			Expect(loose.Classify(c, existing)).To(HaveLen(1))
			Expect(strict.Classify(c, existing)).To(BeEmpty())
		})

		It("scores titles symmetrically within [0,1]", func() {
			titles := []string{"Churn risk", "churn-risk", "Regulatory change", "Key person", "", "Data breach exposure"}
			for _, a := range titles {
				for _, b := range titles {
					s := m.TitleSimilarity(a, b)
					Expect(s).To(BeNumerically(">=", 0))
					Expect(s).To(BeNumerically("<=", 1))
					Expect(m.TitleSimilarity(b, a)).To(BeNumerically("~", s, 1e-9))
				}
				Expect(m.TitleSimilarity(a, a)).To(Equal(1.0))
			}
		})
	})

	Describe("context facts", func() {
		It("only matches the exact key", func() {
			c := &fact.Candidate{UserID: "u1", Identity: fact.ContextKey{Name: "Industry"}, Value: "E-commerce"}
			matches := m.Classify(c, []*fact.Fact{
				stored(fact.KindContext, fact.ContextKey{Name: "industry"}, "B2B SaaS"),
				stored(fact.KindContext, fact.ContextKey{Name: "headcount"}, "40"),
			})
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].Relationship).To(Equal(match.ValueConflict))
		})
	})
})
