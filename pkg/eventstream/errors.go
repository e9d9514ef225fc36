package eventstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNilResolutionEvent indicates a nil resolution event payload was provided to a publisher.
	ErrNilResolutionEvent = errors.New("nil resolution event")

	// ErrIncompleteResolutionEvent indicates an event is missing a field
	// consumers need to route or order it.
	ErrIncompleteResolutionEvent = errors.New("incomplete resolution event")
)

// Validate checks that event can be published: it must be stamped by
// NewResolutionEvent and name the user, kind, identity and action.
func Validate(event *ResolutionEvent) error {
	if event == nil {
		return ErrNilResolutionEvent
	}

	for _, f := range []struct{ name, value string }{
		{"event_id", event.EventID},
		{"event_type", event.EventType},
		{"user_id", event.UserID},
		{"kind", event.Kind},
		{"identity_key", event.IdentityKey},
		{"action", event.Action},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: missing %s", ErrIncompleteResolutionEvent, f.name)
		}
	}
	return nil
}
