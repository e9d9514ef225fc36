package tms

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/verity/pkg/eventstream"
	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/match"
)

type config struct {
	weights           *fact.Weights
	matcher           match.Config
	verifiedThreshold float64
	logger            *slog.Logger
	publisher         eventstream.Publisher
	now               func() time.Time
}

// Option configures an Engine created with New.
type Option func(*config)

// WithWeights injects the source authority table.
func WithWeights(w *fact.Weights) Option {
	return func(c *config) {
		c.weights = w
	}
}

// WithMatcherConfig sets the title similarity and numeric tolerance.
func WithMatcherConfig(m match.Config) Option {
	return func(c *config) {
		c.matcher = m
	}
}

// WithVerifiedThreshold sets the confidence at which facts become VERIFIED.
func WithVerifiedThreshold(t float64) Option {
	return func(c *config) {
		c.verifiedThreshold = t
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithPublisher sets where resolution events go after each commit.
func WithPublisher(p eventstream.Publisher) Option {
	return func(c *config) {
		c.publisher = p
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}
