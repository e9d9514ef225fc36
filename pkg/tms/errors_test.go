package tms_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/resolve"
	"github.com/papercomputeco/verity/pkg/storage"
	"github.com/papercomputeco/verity/pkg/storage/inmemory"
	"github.com/papercomputeco/verity/pkg/tms"
	testutils "github.com/papercomputeco/verity/pkg/utils/test"
)

// failingReadDriver hands out transactions whose reads fail.
type failingReadDriver struct {
	*inmemory.Driver
}

func (d failingReadDriver) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return d.Driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, failingReadTx{tx})
	})
}

type failingReadTx struct {
	storage.Tx
}

func (failingReadTx) ActiveFacts(context.Context, storage.FactQuery) ([]*fact.Fact, error) {
	return nil, errors.New("connection reset by peer")
}

var _ = Describe("Engine failures", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("partial update", func() {
		var (
			driver *inmemory.Driver
			engine *tms.Engine
			armed  bool
		)

		BeforeEach(func() {
			armed = false
			driver = inmemory.NewDriver(inmemory.WithWriteHook(func(op string) error {
				if armed && op == "insert fact" {
					return errors.New("disk full")
				}
				return nil
			}))

			var err error
			engine, err = tms.New(driver)
			Expect(err).NotTo(HaveOccurred())
		})

		It("surfaces a failed insert half distinctly and rolls back the deprecation", func() {
			first, err := engine.Verify(ctx, testutils.NewRelational("U", "Acme", "industry", "SaaS", "CHAT", 0.8))
			Expect(err).NotTo(HaveOccurred())

			armed = true
			res, err := engine.Verify(ctx, testutils.NewRelational("U", "Acme", "industry", "Cloud Infrastructure", "ERP", 0.95))
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(tms.ErrPartialUpdate))
			Expect(tms.IsRetryable(err)).To(BeTrue())

			var pe *tms.PartialUpdateError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.FactID).To(Equal(first.FactID))
			Expect(pe.RolledBack).To(BeTrue())
			Expect(pe.Error()).To(ContainSubstring("disk full"))

			facts, err := engine.ActiveFacts(ctx, "U", fact.RelationalKey{Subject: "Acme", Predicate: "industry"})
			Expect(err).NotTo(HaveOccurred())
			Expect(facts).To(HaveLen(1))
			Expect(facts[0].ID).To(Equal(first.FactID))
			Expect(facts[0].VerificationStatus).To(Equal(fact.StatusProvisional))

			armed = false
			retried, err := engine.Verify(ctx, testutils.NewRelational("U", "Acme", "industry", "Cloud Infrastructure", "ERP", 0.95))
			Expect(err).NotTo(HaveOccurred())
			Expect(retried.Action).To(Equal(resolve.ActionUpdate))
			Expect(retried.SupersededID).To(Equal(first.FactID))
		})

		It("treats a failed plain insert as a write failure", func() {
			armed = true
			_, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 0.8))
			Expect(err).To(MatchError(tms.ErrStoreWrite))
			Expect(err).NotTo(MatchError(tms.ErrPartialUpdate))
			Expect(driver.Count(fact.KindContext)).To(BeZero())
		})
	})

	Describe("store failures", func() {
		It("reports read failures as errors, not skips", func() {
			engine, err := tms.New(failingReadDriver{inmemory.NewDriver()})
			Expect(err).NotTo(HaveOccurred())

			res, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 0.8))
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(tms.ErrStoreRead))
			Expect(err.Error()).To(ContainSubstring("connection reset by peer"))
		})

		It("reports a closed store as a write failure", func() {
			driver := inmemory.NewDriver()
			Expect(driver.Close()).To(Succeed())

			engine, err := tms.New(driver)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 0.8))
			Expect(err).To(MatchError(tms.ErrStoreWrite))

			_, err = engine.PendingConflicts(ctx, "U")
			Expect(err).To(MatchError(tms.ErrStoreRead))

			_, err = engine.ActiveFacts(ctx, "U", fact.ContextKey{Name: "currency"})
			Expect(err).To(MatchError(tms.ErrStoreRead))
		})
	})

	Describe("IsRetryable", func() {
		It("only accepts store failures", func() {
			Expect(tms.IsRetryable(storage.Write("insert fact", errors.New("x")))).To(BeTrue())
			Expect(tms.IsRetryable(storage.Read("active facts", errors.New("x")))).To(BeTrue())
			Expect(tms.IsRetryable(tms.ErrInvalidCandidate)).To(BeFalse())
			Expect(tms.IsRetryable(tms.ErrUnknownFactKind)).To(BeFalse())
		})
	})
})

var _ = Describe("Engine events", func() {
	var (
		ctx       context.Context
		publisher *testutils.MockPublisher
		engine    *tms.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		publisher = testutils.NewMockPublisher()

		var err error
		engine, err = tms.New(inmemory.NewDriver(), tms.WithPublisher(publisher))
		Expect(err).NotTo(HaveOccurred())
	})

	It("publishes one event per resolved candidate", func() {
		_, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 0.8))
		Expect(err).NotTo(HaveOccurred())
		res, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "USD", "CHAT", 0.8))
		Expect(err).NotTo(HaveOccurred())

		events := publisher.Events()
		Expect(events).To(HaveLen(2))
		Expect(events[0].Action).To(Equal("INSERT"))
		Expect(events[1].Action).To(Equal("CONTESTED"))
		Expect(events[1].ConflictID).To(Equal(res.ConflictID))
		Expect(events[1].Kind).To(Equal("context"))
		Expect(events[1].IdentityKey).To(Equal("currency"))
		Expect(events[1].Value).To(Equal("USD"))
		Expect(events[1].PartitionKey()).To(Equal(events[0].PartitionKey()))
	})

	It("does not publish when the candidate fails", func() {
		_, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 2))
		Expect(err).To(HaveOccurred())
		Expect(publisher.Events()).To(BeEmpty())
	})

	It("keeps the result when publishing fails", func() {
		publisher.Fail = true

		res, err := engine.Verify(ctx, testutils.NewContext("U", "currency", "EUR", "CHAT", 0.8))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Action).To(Equal(resolve.ActionInsert))
		Expect(publisher.Events()).To(HaveLen(1))
	})
})
