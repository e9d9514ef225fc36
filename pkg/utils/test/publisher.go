package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/verity/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records every event.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ResolutionEvent

	// Fail causes PublishResolution to return an error after recording.
	Fail bool

	closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishResolution(_ context.Context, event *eventstream.ResolutionEvent) error {
	if event == nil {
		return eventstream.ErrNilResolutionEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	if m.Fail {
		return errors.New("mock publish failure")
	}
	return nil
}

// Events returns a snapshot of the recorded events.
func (m *MockPublisher) Events() []*eventstream.ResolutionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*eventstream.ResolutionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
