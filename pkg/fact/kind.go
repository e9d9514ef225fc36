package fact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a fact kind string is not recognized.
var ErrUnknownKind = errors.New("unknown fact kind")

// Kind is the closed set of fact families the knowledge base holds.
type Kind int

const (
	// KindRelational facts are keyed by (subject, predicate).
	KindRelational Kind = iota + 1

	// KindRisk facts are discrete risk records keyed by a fuzzily matched title.
	KindRisk

	// KindContext facts are singleton key/value company context entries.
	KindContext
)

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRelational, KindRisk, KindContext}
}

// ParseKind converts a caller supplied kind name into a Kind.
// Names are matched case-insensitively; "business" and "company_context" are
// accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "business", "business_fact":
		return KindRelational, nil
	case "risk":
		return KindRisk, nil
	case "context", "company_context":
		return KindContext, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindRelational:
		return "relational"
	case KindRisk:
		return "risk"
	case KindContext:
		return "context"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindRelational || k == KindRisk || k == KindContext
}

// Table returns the name of the table facts of this kind are persisted in.
func (k Kind) Table() string {
	switch k {
	case KindRelational:
		return "business_facts"
	case KindRisk:
		return "risk_facts"
	case KindContext:
		return "company_context"
	default:
		return ""
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
