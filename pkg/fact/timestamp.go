package fact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseTimestamp reads an RFC 3339 timestamp, normalized to UTC, or a plain
// YYYY-MM-DD date, read as UTC midnight.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// Timestamp is a time decoded with ParseTimestamp. Encoding is RFC 3339.
type Timestamp struct {
	time.Time
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// UnmarshalJSON shadows time.Time's so plain dates decode too.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid time: %w", err)
	}
	return t.UnmarshalText([]byte(s))
}
