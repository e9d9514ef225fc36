package ingest

import (
	"maps"
	"slices"

	"github.com/papercomputeco/verity/pkg/resolve"
)

// Failure is a job that ended in an error.
type Failure struct {
	Line int
	Err  error
}

// Summary aggregates the outcomes of a batch.
type Summary struct {
	// Processed counts jobs that reached a verdict or failed.
	Processed int

	// Actions counts successful results by action.
	Actions map[resolve.Action]int

	Failures []Failure
}

func newSummary() *Summary {
	return &Summary{Actions: make(map[resolve.Action]int)}
}

func (s *Summary) add(o Outcome) {
	s.Processed++
	if o.Err != nil {
		s.Failures = append(s.Failures, Failure{Line: o.Job.Line, Err: o.Err})
		return
	}
	if o.Result != nil {
		s.Actions[o.Result.Action]++
	}
}

func (s *Summary) clone() *Summary {
	c := *s
	c.Actions = maps.Clone(s.Actions)
	c.Failures = slices.Clone(s.Failures)
	slices.SortFunc(c.Failures, func(a, b Failure) int { return a.Line - b.Line })
	return &c
}

// Failed returns the number of failed jobs.
func (s *Summary) Failed() int {
	return len(s.Failures)
}

// Count returns the number of results with action a.
func (s *Summary) Count(a resolve.Action) int {
	return s.Actions[a]
}
