package ingest

import (
	"context"
	"io"
)

// Batch verifies every JSONL candidate in r, after the first c.Offset lines,
// through a fresh pool built from c. It returns the pool's summary and the
// number of leading lines fully processed, which is what a later run should
// pass as Offset to continue.
//
// A done ctx stops reading; candidates already queued are still verified
// and the returned error matches ctx.Err().
func Batch(ctx context.Context, c Config, r io.Reader) (*Summary, int, error) {
	pool, err := NewPool(&c)
	if err != nil {
		return nil, c.Offset, err
	}

	readErr := ReadJSONL(r, c.Offset, func(line int, job *Job, err error) error {
		switch {
		case err != nil:
			pool.RecordFailure(line, err)
			return nil
		case job == nil:
			pool.MarkDone(line)
			return nil
		default:
			return pool.Submit(ctx, *job)
		}
	})

	summary := pool.Close()
	return summary, pool.Completed(), readErr
}
