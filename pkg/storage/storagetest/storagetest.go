// Package storagetest holds the ginkgo tests every storage.Driver must pass.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
)

// NewFact builds an active fact for userID under id.
func NewFact(userID string, id fact.Identity, value string, validFrom time.Time) *fact.Fact {
	f := &fact.Fact{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Kind:               id.Kind(),
		IdentityKey:        id.Key(),
		Value:              value,
		ConfidenceScore:    0.8,
		SourceAuthority:    fact.AuthorityConversational,
		VerificationStatus: fact.StatusProvisional,
		ValidFrom:          validFrom.UTC(),
		LastVerifiedAt:     validFrom.UTC(),
		CreatedAt:          validFrom.UTC(),
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

func insert(ctx context.Context, d storage.Driver, facts ...*fact.Fact) {
	GinkgoHelper()
	Expect(d.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, f := range facts {
			if err := tx.InsertFact(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})).To(Succeed())
}

// DescribeDriver registers the driver contract tests. newDriver is called
// before every It; the returned driver is closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
		user   string
		t0     time.Time
	)

	industry := fact.RelationalKey{Subject: "Acme Corp", Predicate: "industry"}
	revenue := fact.RelationalKey{Subject: "acme  corp", Predicate: "Revenue"}

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)
		user = "user-" + uuid.NewString()
		t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("ActiveFacts", func() {
		It("returns facts of one subject scope", func() {
			a := NewFact(user, industry, "B2B SaaS", t0)
			b := NewFact(user, revenue, "$3.2M", t0.Add(time.Hour))
			other := NewFact(user, fact.RelationalKey{Subject: "Globex", Predicate: "industry"}, "Retail", t0)
			insert(ctx, driver, a, b, other)

			facts, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational, Scope: industry.Scope()})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(2))
			Expect(facts[0].ID).To(Equal(b.ID), "newest valid_from first")
			Expect(facts[1].ID).To(Equal(a.ID))
			Expect(facts[1].Subject).To(Equal("Acme Corp"))
			Expect(facts[1].Predicate).To(Equal("industry"))
			Expect(facts[1].ValidFrom.Equal(t0)).To(BeTrue())
			Expect(facts[1].ValidTo).To(BeNil())
		})

		It("never returns another user's facts", func() {
			insert(ctx, driver, NewFact("someone-else-"+user, industry, "Retail", t0))

			facts, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational, Scope: industry.Scope()})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(BeEmpty())
		})

		It("returns every active risk when the scope is empty", func() {
			insert(ctx, driver,
				NewFact(user, fact.RiskKey{Title: "Key person dependency"}, "high", t0),
				NewFact(user, fact.RiskKey{Title: "Currency exposure"}, "low", t0),
			)

			facts, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRisk})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(2))
			Expect([]string{facts[0].Title, facts[1].Title}).To(ConsistOf("Key person dependency", "Currency exposure"))
		})

		It("keeps kinds in separate tables", func() {
			insert(ctx, driver, NewFact(user, fact.ContextKey{Name: "industry"}, "B2B SaaS", t0))

			facts, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(BeEmpty())

			facts, err = driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindContext, Scope: "industry"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
			Expect(facts[0].ContextKey).To(Equal("industry"))
		})
	})

	Describe("UpdateFact", func() {
		It("closes the validity interval", func() {
			f := NewFact(user, industry, "B2B SaaS", t0)
			insert(ctx, driver, f)

			closed := t0.Add(24 * time.Hour)
			f.ValidTo = &closed
			f.VerificationStatus = fact.StatusDeprecated
			Expect(driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				return tx.UpdateFact(ctx, f)
			})).To(Succeed())

			active, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational, Scope: industry.Scope()})
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeEmpty())

			stored, err := driver.GetFact(ctx, fact.KindRelational, f.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.VerificationStatus).To(Equal(fact.StatusDeprecated))
			Expect(stored.ValidTo).NotTo(BeNil())
			Expect(stored.ValidTo.Equal(closed)).To(BeTrue())
			Expect(stored.Value).To(Equal("B2B SaaS"), "history is kept")
		})

		It("updates confidence and status", func() {
			f := NewFact(user, industry, "B2B SaaS", t0)
			insert(ctx, driver, f)

			f.ConfidenceScore = 0.93
			f.VerificationStatus = fact.StatusVerified
			f.LastVerifiedAt = t0.Add(time.Minute)
			Expect(driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				return tx.UpdateFact(ctx, f)
			})).To(Succeed())

			stored, err := driver.GetFact(ctx, fact.KindRelational, f.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ConfidenceScore).To(BeNumerically("~", 0.93, 1e-9))
			Expect(stored.VerificationStatus).To(Equal(fact.StatusVerified))
			Expect(stored.LastVerifiedAt.Equal(t0.Add(time.Minute))).To(BeTrue())
		})

		It("reports a missing fact as a write error", func() {
			f := NewFact(user, industry, "B2B SaaS", t0)
			err := driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				return tx.UpdateFact(ctx, f)
			})
			Expect(err).To(MatchError(storage.ErrWrite))

			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
		})
	})

	Describe("WithTx", func() {
		It("rolls back every write when fn fails", func() {
			existing := NewFact(user, industry, "B2B SaaS", t0)
			insert(ctx, driver, existing)

			boom := errors.New("boom")
			err := driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				if err := tx.Lock(ctx, user+"/"+industry.Key()); err != nil {
					return err
				}
				deprecated := existing.Clone()
				now := t0.Add(time.Hour)
				deprecated.ValidTo = &now
				deprecated.VerificationStatus = fact.StatusDeprecated
				if err := tx.UpdateFact(ctx, deprecated); err != nil {
					return err
				}

				active, err := tx.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational, Scope: industry.Scope()})
				Expect(err).NotTo(HaveOccurred())
				Expect(active).To(BeEmpty(), "a tx reads its own writes")

				return boom
			})
			Expect(err).To(MatchError(boom))

			active, err := driver.ActiveFacts(ctx, storage.FactQuery{UserID: user, Kind: fact.KindRelational, Scope: industry.Scope()})
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(1))
			Expect(active[0].ID).To(Equal(existing.ID))
		})
	})

	Describe("conflicts", func() {
		It("lists pending conflicts in creation order", func() {
			f := NewFact(user, industry, "B2B SaaS", t0)
			insert(ctx, driver, f)

			records := []*fact.ConflictRecord{
				{
					ID:               uuid.NewString(),
					UserID:           user,
					FactKind:         fact.KindRelational,
					FactTable:        fact.KindRelational.Table(),
					FactID:           f.ID,
					ConflictType:     fact.ConflictValueMismatch,
					ResolutionStatus: fact.ResolutionPending,
					Details: fact.ConflictDetails{
						ExistingValue:     "B2B SaaS",
						NewValue:          "E-commerce",
						ExistingAuthority: "CHAT",
						NewAuthority:      "CHAT",
						NewConfidence:     0.7,
					},
					CreatedAt: t0,
				},
				{
					ID:               uuid.NewString(),
					UserID:           user,
					FactKind:         fact.KindRelational,
					FactTable:        fact.KindRelational.Table(),
					FactID:           f.ID,
					ConflictType:     fact.ConflictValueMismatch,
					ResolutionStatus: fact.ResolutionResolved,
					CreatedAt:        t0.Add(time.Minute),
				},
			}
			Expect(driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				for _, c := range records {
					if err := tx.InsertConflict(ctx, c); err != nil {
						return err
					}
				}
				return nil
			})).To(Succeed())

			pending, err := driver.PendingConflicts(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(records[0].ID))
			Expect(pending[0].FactKind).To(Equal(fact.KindRelational))
			Expect(pending[0].FactID).To(Equal(f.ID))
			Expect(pending[0].Details.ExistingValue).To(Equal("B2B SaaS"))
			Expect(pending[0].Details.NewValue).To(Equal("E-commerce"))
		})

		It("lets a transaction read the conflicts it recorded", func() {
			f := NewFact(user, industry, "B2B SaaS", t0)
			insert(ctx, driver, f)

			rec := &fact.ConflictRecord{
				ID:               uuid.NewString(),
				UserID:           user,
				FactKind:         fact.KindRelational,
				FactTable:        fact.KindRelational.Table(),
				FactID:           f.ID,
				ConflictType:     fact.ConflictValueMismatch,
				ResolutionStatus: fact.ResolutionPending,
				Details:          fact.ConflictDetails{ExistingValue: "B2B SaaS", NewValue: "Retail"},
				CreatedAt:        t0,
			}
			boom := errors.New("abandon")
			err := driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
				if err := tx.InsertConflict(ctx, rec); err != nil {
					return err
				}
				pending, err := tx.PendingConflicts(ctx, user)
				Expect(err).NotTo(HaveOccurred())
				Expect(pending).To(HaveLen(1))
				Expect(pending[0].ID).To(Equal(rec.ID))
				Expect(pending[0].Details.NewValue).To(Equal("Retail"))
				return boom
			})
			Expect(err).To(MatchError(boom))

			pending, err := driver.PendingConflicts(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})

	Describe("GetFact", func() {
		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.GetFact(ctx, fact.KindRisk, "missing")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})
}
