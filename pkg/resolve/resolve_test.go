package resolve_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/match"
	"github.com/papercomputeco/verity/pkg/resolve"
)

var (
	t0       = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	industry = fact.RelationalKey{Subject: "Acme", Predicate: "industry"}
)

func existing(value, authority string, confidence float64, status fact.Status) *fact.Fact {
	return &fact.Fact{
		ID:                 "existing-" + value,
		UserID:             "u1",
		Kind:               fact.KindRelational,
		IdentityKey:        industry.Key(),
		Subject:            industry.Subject,
		Predicate:          industry.Predicate,
		Value:              value,
		ConfidenceScore:    confidence,
		SourceAuthority:    authority,
		VerificationStatus: status,
		ValidFrom:          t0,
	}
}

func candidate(id fact.Identity, value, authority string, confidence float64) *fact.Candidate {
	return &fact.Candidate{
		UserID:          "u1",
		Identity:        id,
		Value:           value,
		Confidence:      confidence,
		SourceAuthority: authority,
	}
}

func at(t time.Time) *time.Time { return &t }

var _ = Describe("Resolver", func() {
	var r *resolve.Resolver

	BeforeEach(func() {
		r = resolve.New(resolve.Config{})
	})

	Describe("New", func() {
		It("applies defaults", func() {
			Expect(r.VerifiedThreshold()).To(Equal(resolve.DefaultVerifiedThreshold))
			Expect(r.Weights()).NotTo(BeNil())
		})
	})

	Describe("insert", func() {
		It("inserts when nothing matches", func() {
			d := r.Resolve(candidate(industry, "B2B SaaS", "CHAT", 0.8), nil)
			Expect(d.Action).To(Equal(resolve.ActionInsert))
			Expect(d.Target).To(BeNil())
			Expect(d.Reason).To(Equal(resolve.ReasonNoExisting))
			Expect(d.Status).To(Equal(fact.StatusProvisional))
			Expect(d.Confidence).To(Equal(0.8))
		})

		It("inserts verified at the threshold", func() {
			d := r.Resolve(candidate(industry, "B2B SaaS", "ERP", 0.9), nil)
			Expect(d.Status).To(Equal(fact.StatusVerified))
		})

		It("inserts a new facet when only unrelated facts match", func() {
			other := existing("$3.2M", "CHAT", 0.8, fact.StatusProvisional)
			d := r.Resolve(candidate(industry, "B2B SaaS", "CHAT", 0.8), []match.Match{
				{Fact: other, Relationship: match.Unrelated},
			})
			Expect(d.Action).To(Equal(resolve.ActionInsert))
			Expect(d.Reason).To(Equal(resolve.ReasonNewFacet))
		})
	})

	Describe("confirm", func() {
		It("prefers an identical match over an earlier conflict", func() {
			conflicting := existing("E-commerce", "CHAT", 0.8, fact.StatusProvisional)
			same := existing("B2B SaaS", "CHAT", 0.8, fact.StatusProvisional)

			d := r.Resolve(candidate(industry, "SaaS", "CHAT", 0.8), []match.Match{
				{Fact: conflicting, Relationship: match.ValueConflict},
				{Fact: same, Relationship: match.Identical},
			})
			Expect(d.Action).To(Equal(resolve.ActionConfirm))
			Expect(d.Target).To(BeIdenticalTo(same))
		})

		It("picks the first identical match", func() {
			a := existing("SaaS", "CHAT", 0.8, fact.StatusProvisional)
			b := existing("B2B SaaS", "CHAT", 0.8, fact.StatusProvisional)
			d := r.Resolve(candidate(industry, "SaaS", "CHAT", 0.8), []match.Match{
				{Fact: a, Relationship: match.Identical},
				{Fact: b, Relationship: match.Identical},
			})
			Expect(d.Target).To(BeIdenticalTo(a))
		})

		It("blends confidence and promotes provisional facts", func() {
			e := existing("B2B SaaS", "CHAT", 0.85, fact.StatusProvisional)
			d := r.Resolve(candidate(industry, "B2B SaaS", "ERP", 1.0), []match.Match{
				{Fact: e, Relationship: match.Identical},
			})
			Expect(d.Confidence).To(BeNumerically("~", 0.895, 1e-9))
			Expect(d.Status).To(Equal(fact.StatusProvisional))

			e.ConfidenceScore = 0.9
			d = r.Resolve(candidate(industry, "B2B SaaS", "ERP", 1.0), []match.Match{
				{Fact: e, Relationship: match.Identical},
			})
			Expect(d.Confidence).To(BeNumerically("~", 0.93, 1e-9))
			Expect(d.Status).To(Equal(fact.StatusVerified))
		})

		It("never promotes a contested fact", func() {
			e := existing("B2B SaaS", "CHAT", 0.95, fact.StatusContested)
			d := r.Resolve(candidate(industry, "B2B SaaS", "ERP", 1.0), []match.Match{
				{Fact: e, Relationship: match.Identical},
			})
			Expect(d.Status).To(Equal(fact.StatusContested))
		})

		It("keeps an equal confidence stable", func() {
			Expect(resolve.BoostConfidence(0.8, 0.8)).To(BeNumerically("~", 0.8, 1e-12))
		})

		It("keeps boosted confidence in [0,1] and between its inputs", func() {
			for _, old := range []float64{0, 0.1, 0.5, 0.8, 1} {
				for _, nw := range []float64{0, 0.3, 0.9, 1} {
					b := resolve.BoostConfidence(old, nw)
					Expect(b).To(BeNumerically(">=", min(old, nw)-1e-12))
					Expect(b).To(BeNumerically("<=", max(old, nw)+1e-12))
				}
			}
		})
	})

	Describe("conflicts", func() {
		conflictWith := func(e *fact.Fact) []match.Match {
			return []match.Match{{Fact: e, Relationship: match.ValueConflict}}
		}

		It("contests equal authority contradictions", func() {
			e := existing("B2B SaaS", "CHAT", 0.8, fact.StatusProvisional)
			d := r.Resolve(candidate(industry, "E-commerce", "CHAT", 0.7), conflictWith(e))

			Expect(d.Action).To(Equal(resolve.ActionContested))
			Expect(d.Target).To(BeIdenticalTo(e))
			Expect(d.Status).To(Equal(fact.StatusContested))
			Expect(d.Conflict).NotTo(BeNil())
			Expect(d.Conflict.ExistingValue).To(Equal("B2B SaaS"))
			Expect(d.Conflict.NewValue).To(Equal("E-commerce"))
			Expect(d.Conflict.ExistingAuthority).To(Equal("CHAT"))
			Expect(d.Conflict.NewAuthority).To(Equal("CHAT"))
			Expect(d.Conflict.NewConfidence).To(Equal(0.7))
		})

		It("treats authority aliases as equal", func() {
			e := existing("B2B SaaS", "CONVERSATIONAL", 0.8, fact.StatusProvisional)
			d := r.Resolve(candidate(industry, "E-commerce", "chat", 0.7), conflictWith(e))
			Expect(d.Action).To(Equal(resolve.ActionContested))
		})

		It("updates on temporal progression before comparing authority", func() {
			e := existing("B2B SaaS", "ERP", 0.8, fact.StatusVerified)
			c := candidate(industry, "E-commerce", "CHAT", 0.7)
			c.ValidFrom = at(t0.Add(24 * time.Hour))

			d := r.Resolve(c, conflictWith(e))
			Expect(d.Action).To(Equal(resolve.ActionUpdate))
			Expect(d.Reason).To(Equal(resolve.ReasonTemporal))
			Expect(d.Status).To(Equal(fact.StatusProvisional))
		})

		It("ignores an older or equal valid_from", func() {
			e := existing("B2B SaaS", "CHAT", 0.8, fact.StatusProvisional)
			for _, vf := range []time.Time{t0, t0.Add(-time.Hour)} {
				c := candidate(industry, "E-commerce", "CHAT", 0.7)
				c.ValidFrom = at(vf)
				Expect(r.Resolve(c, conflictWith(e)).Action).To(Equal(resolve.ActionContested))
			}
		})

		It("does not apply temporal progression to context facts", func() {
			key := fact.ContextKey{Name: "industry"}
			e := existing("B2B SaaS", "ERP", 0.8, fact.StatusVerified)
			e.Kind = fact.KindContext

			c := candidate(key, "E-commerce", "CHAT", 0.7)
			c.ValidFrom = at(t0.Add(24 * time.Hour))

			d := r.Resolve(c, conflictWith(e))
			Expect(d.Action).To(Equal(resolve.ActionSkip))
			Expect(d.Reason).To(Equal(resolve.ReasonExistingAuthority))
			Expect(d.Target).To(BeIdenticalTo(e))
		})

		It("applies temporal progression to risk facts", func() {
			e := existing("high", "ERP", 0.8, fact.StatusVerified)
			e.Kind = fact.KindRisk

			c := candidate(fact.RiskKey{Title: "Key person"}, "low", "CHAT", 0.7)
			c.ValidFrom = at(t0.Add(time.Minute))
			Expect(r.Resolve(c, conflictWith(e)).Action).To(Equal(resolve.ActionUpdate))
		})

		authorities := []string{"UNKNOWN", "CHAT", "API", "DOCUMENT", "USER_UPLOAD", "ERP"}

		It("respects authority ordering for every pair", func() {
			w := fact.DefaultWeights()
			for _, a := range authorities {
				for _, b := range authorities {
					e := existing("B2B SaaS", b, 0.8, fact.StatusProvisional)
					d := r.Resolve(candidate(industry, "E-commerce", a, 0.8), conflictWith(e))

					switch {
					case w.Weight(a) > w.Weight(b):
						Expect(d.Action).To(Equal(resolve.ActionUpdate), "%s over %s", a, b)
						Expect(d.Reason).To(Equal(resolve.ReasonHigherAuthority))
					case w.Weight(a) < w.Weight(b):
						Expect(d.Action).To(Equal(resolve.ActionSkip), "%s under %s", a, b)
					default:
						Expect(d.Action).To(Equal(resolve.ActionContested), "%s equals %s", a, b)
					}
				}
			}
		})

		It("honours injected weights", func() {
			custom := resolve.New(resolve.Config{Weights: fact.NewWeights(map[string]float64{"CHAT": 1})})
			e := existing("B2B SaaS", "DOCUMENT", 0.8, fact.StatusProvisional)
			d := custom.Resolve(candidate(industry, "E-commerce", "CHAT", 0.8), conflictWith(e))
			Expect(d.Action).To(Equal(resolve.ActionUpdate))
		})
	})

	It("maps every input to exactly one known action", func() {
		rels := []match.Relationship{match.Unrelated, match.Identical, match.ValueConflict}
		for _, k := range fact.Kinds() {
			for _, rel := range rels {
				e := existing("x", "CHAT", 0.5, fact.StatusProvisional)
				e.Kind = k
				var id fact.Identity = industry
				switch k {
				case fact.KindRisk:
					id = fact.RiskKey{Title: "x"}
				case fact.KindContext:
					id = fact.ContextKey{Name: "x"}
				}
				d := r.Resolve(candidate(id, "y", "CHAT", 0.5), []match.Match{{Fact: e, Relationship: rel}})
				Expect(d.Action.String()).To(BeElementOf("INSERT", "CONFIRM", "UPDATE", "CONTESTED", "SKIP"))
			}
		}
	})

	It("names actions", func() {
		Expect(resolve.ActionContested.String()).To(Equal("CONTESTED"))
		Expect(resolve.Action(42).String()).To(Equal("Action(42)"))
		Expect(resolve.ActionSkip.Mutates()).To(BeFalse())
		Expect(resolve.ActionInsert.Mutates()).To(BeTrue())
	})
})
