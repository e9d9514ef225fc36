package eventstream

import "context"

// Publisher publishes resolution events to an event stream backend.
type Publisher interface {
	PublishResolution(ctx context.Context, event *ResolutionEvent) error
	Close() error
}
