// Package tms is the truth maintenance engine. It keeps each user's fact
// knowledge base consistent as candidates arrive: every candidate is routed
// to its fact family, matched against the active facts for its identity,
// resolved to exactly one action and applied in a single store transaction.
package tms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/verity/pkg/eventstream"
	"github.com/papercomputeco/verity/pkg/eventstream/nop"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/logger"
	"github.com/papercomputeco/verity/pkg/match"
	"github.com/papercomputeco/verity/pkg/resolve"
	"github.com/papercomputeco/verity/pkg/storage"
)

// Engine verifies fact candidates against a store. It is safe for
// concurrent use: candidates for one (user, identity) are linearized and
// everything else runs in parallel.
type Engine struct {
	driver    storage.Driver
	matcher   *match.Matcher
	resolver  *resolve.Resolver
	mutator   *mutator
	publisher eventstream.Publisher
	logger    *slog.Logger
	locks     *keyLocks
	now       func() time.Time
}

// New creates an Engine over driver. The engine does not own the driver or
// the publisher; callers close them.
func New(driver storage.Driver, opts ...Option) (*Engine, error) {
	if driver == nil {
		return nil, ErrNilDriver
	}

	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.publisher == nil {
		c.publisher = nop.NewPublisher()
	}
	if c.now == nil {
		c.now = time.Now
	}

	return &Engine{
		driver:    driver,
		matcher:   match.New(c.matcher),
		resolver:  resolve.New(resolve.Config{Weights: c.weights, VerifiedThreshold: c.verifiedThreshold}),
		mutator:   &mutator{now: c.now},
		publisher: c.publisher,
		logger:    logger.Component(c.logger, "tms"),
		locks:     newKeyLocks(),
		now:       c.now,
	}, nil
}

// VerifyAndStoreFact builds a candidate of the named kind from data and
// verifies it. An unrecognized kind yields a SKIP result together with an
// error matching ErrUnknownFactKind.
func (e *Engine) VerifyAndStoreFact(ctx context.Context, kind string, data fact.Data) (*Result, error) {
	k, err := fact.ParseKind(kind)
	if err != nil {
		e.logger.Warn("rejected candidate of unknown kind", logger.KeyKind, kind, logger.KeyUserID, data.UserID)
		return &Result{
			Action:  resolve.ActionSkip,
			Reason:  resolve.ReasonUnknownKind,
			Message: fmt.Sprintf("Skipped: unknown fact kind %q", kind),
		}, err
	}

	c, err := data.Candidate(k)
	if err != nil {
		return nil, err
	}
	return e.Verify(ctx, c)
}

// Verify resolves one candidate and applies the outcome. Store failures are
// returned as errors and never reported as a SKIP.
func (e *Engine) Verify(ctx context.Context, c *fact.Candidate) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r, err := routeFor(c)
	if err != nil {
		return &Result{
			Action:  resolve.ActionSkip,
			Reason:  resolve.ReasonUnknownKind,
			Message: "Skipped: " + resolve.ReasonUnknownKind,
		}, err
	}

	release := e.locks.lock(r.lockKey)
	defer release()

	var res *Result
	err = e.driver.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Lock(ctx, r.lockKey); err != nil {
			return storage.Write("lock", err)
		}

		existing, err := tx.ActiveFacts(ctx, r.query)
		if err != nil {
			return storage.Read("active facts", err)
		}

		matches := e.matcher.Classify(c, existing)
		d := e.resolver.Resolve(c, matches)
		e.logger.Debug("resolved candidate",
			candidateAttrs(c,
				"working_set", len(existing),
				"matches", len(matches),
				logger.KeyAction, d.Action,
				logger.KeyReason, d.Reason,
			)...,
		)

		res, err = e.mutator.apply(ctx, tx, c, d)
		return err
	})
	if err != nil {
		if pe, ok := err.(*PartialUpdateError); ok {
			// WithTx returns fn's error untouched only when the rollback
			// succeeded.
			pe.RolledBack = true
		}
		e.logger.Error("candidate not applied", candidateAttrs(c, logger.Err(err))...)
		return nil, err
	}

	e.logResult(c, res)
	e.publish(ctx, c, res)
	return res, nil
}

// ActiveFacts lists the active facts stored under identity for a user. For
// risk facts this includes every title within the similarity threshold.
func (e *Engine) ActiveFacts(ctx context.Context, userID string, identity fact.Identity) ([]*fact.Fact, error) {
	probe := &fact.Candidate{UserID: userID, Identity: identity}
	r, err := routeFor(probe)
	if err != nil {
		return nil, err
	}

	existing, err := e.driver.ActiveFacts(ctx, r.query)
	if err != nil {
		return nil, storage.Read("active facts", err)
	}

	out := make([]*fact.Fact, 0, len(existing))
	for _, m := range e.matcher.Classify(probe, existing) {
		if m.Relationship != match.Unrelated {
			out = append(out, m.Fact)
		}
	}
	return out, nil
}

// PendingConflicts lists the user's conflicts awaiting review.
func (e *Engine) PendingConflicts(ctx context.Context, userID string) ([]*fact.ConflictRecord, error) {
	conflicts, err := e.driver.PendingConflicts(ctx, userID)
	if err != nil {
		return nil, storage.Read("pending conflicts", err)
	}
	return conflicts, nil
}

func (e *Engine) logResult(c *fact.Candidate, res *Result) {
	attrs := candidateAttrs(c,
		logger.KeyAction, res.Action,
		logger.KeyFactID, res.FactID,
		logger.KeyReason, res.Reason,
	)

	switch res.Action {
	case resolve.ActionContested:
		e.logger.Warn("conflict recorded", append(attrs, logger.KeyConflictID, res.ConflictID)...)
	case resolve.ActionSkip:
		e.logger.Debug("candidate skipped", attrs...)
	default:
		if res.SupersededID != "" {
			attrs = append(attrs, "superseded_id", res.SupersededID)
		}
		e.logger.Info("fact stored", attrs...)
	}
}

func candidateAttrs(c *fact.Candidate, extra ...any) []any {
	return append([]any{
		logger.KeyUserID, c.UserID,
		logger.KeyKind, c.Kind(),
		logger.KeyIdentity, c.Identity.Key(),
	}, extra...)
}

// publish emits the resolution event. Failures are logged and never change
// the result.
func (e *Engine) publish(ctx context.Context, c *fact.Candidate, res *Result) {
	ev := eventstream.NewResolutionEvent(e.now())
	ev.UserID = c.UserID
	ev.Kind = c.Kind().String()
	ev.IdentityKey = c.Identity.Key()
	ev.Action = res.Action.String()
	ev.Reason = res.Reason
	ev.FactID = res.FactID
	ev.SupersededID = res.SupersededID
	ev.ConflictID = res.ConflictID
	ev.Value = c.Value
	ev.Confidence = c.Confidence
	ev.SourceAuthority = fact.NormalizeAuthority(c.SourceAuthority)

	if err := e.publisher.PublishResolution(ctx, ev); err != nil {
		e.logger.Warn("failed to publish resolution event", "event_id", ev.EventID, logger.Err(err))
	}
}

// IsRetryable reports whether err is a store failure a caller may retry by
// resubmitting the same candidate.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreRead) || errors.Is(err, ErrStoreWrite) || errors.Is(err, ErrPartialUpdate)
}
