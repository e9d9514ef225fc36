package tms

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/storage"
)

// riskLockScope serializes every risk candidate of a user. Fuzzy titles
// cannot be partitioned by exact key.
const riskLockScope = "*"

// route is where a candidate is read and locked.
type route struct {
	// query selects the working set the matcher classifies.
	query storage.FactQuery

	// lockKey identifies the exclusive section spanning read, decide and
	// write. Candidates with different lock keys never interfere.
	lockKey string
}

// routeFor dispatches a candidate to its fact family.
func routeFor(c *fact.Candidate) (route, error) {
	var scope, lockScope string

	switch id := c.Identity.(type) {
	case fact.RelationalKey:
		// Read by subject so sibling predicates surface as new facets.
		scope, lockScope = id.Scope(), id.Key()
	case fact.RiskKey:
		scope, lockScope = id.Scope(), riskLockScope
	case fact.ContextKey:
		scope, lockScope = id.Scope(), id.Key()
	default:
		return route{}, fmt.Errorf("%w: %T", ErrUnknownFactKind, c.Identity)
	}

	k := c.Kind()
	return route{
		query:   storage.FactQuery{UserID: c.UserID, Kind: k, Scope: scope},
		lockKey: strings.Join([]string{c.UserID, k.String(), lockScope}, "\x00"),
	}, nil
}
