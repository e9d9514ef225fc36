// Package nop provides the publisher used when eventstream.provider is
// "none": events are validated and counted, then dropped.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/verity/pkg/eventstream"
)

type Publisher struct {
	published atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishResolution validates event and drops it.
func (p *Publisher) PublishResolution(_ context.Context, event *eventstream.ResolutionEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}
	p.published.Add(1)
	return nil
}

// Published reports how many events were accepted.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

func (p *Publisher) Close() error {
	return nil
}
