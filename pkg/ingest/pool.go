// Package ingest feeds batches of fact candidates, such as one conversation
// turn's extraction output, through the truth maintenance engine with a
// bounded worker pool.
//
// The engine linearizes candidates that share an identity, so workers never
// coordinate with each other; the pool only bounds concurrency and collects
// outcomes into a Summary.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/verity/pkg/fact"
	"github.com/papercomputeco/verity/pkg/logger"
	"github.com/papercomputeco/verity/pkg/tms"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 256
)

// Verifier is the part of *tms.Engine the pool drives.
type Verifier interface {
	VerifyAndStoreFact(ctx context.Context, kind string, data fact.Data) (*tms.Result, error)
}

// Job is one candidate to verify.
type Job struct {
	// Line is the 1-based input position of the candidate. Zero when the
	// job did not come from a file.
	Line int

	Kind string
	Data fact.Data
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Verifier resolves and stores each candidate.
	Verifier Verifier

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// MaxRetries is how many more times a candidate is submitted after a
	// retryable store failure.
	MaxRetries uint

	// Offset is the number of leading input lines consumed by an earlier
	// run. Completed starts from it.
	Offset int

	// OnOutcome, when set, is called from the worker after every job.
	OnOutcome func(Outcome)

	Logger *slog.Logger
}

// Outcome is the result of one job.
type Outcome struct {
	Job      Job
	Result   *tms.Result
	Err      error
	Attempts int
}

// Pool verifies jobs concurrently.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu        sync.Mutex
	summary   *Summary
	watermark *watermark
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Verifier == nil {
		return nil, fmt.Errorf("ingest pool requires a verifier")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config:    c,
		queue:     make(chan Job, c.QueueSize),
		logger:    logger.Component(c.Logger, "ingest"),
		summary:   newSummary(),
		watermark: newWatermark(c.Offset),
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Submit submits a job, waiting for queue space until ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", logger.KeyLine, job.Line, logger.KeyKind, job.Kind)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, waits for in-flight jobs to drain and returns
// the final summary.
func (p *Pool) Close() *Summary {
	close(p.queue)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary.clone()
}

// Completed returns the highest line L such that every line up to and
// including L has been processed. Lines never submitted hold it back.
func (p *Pool) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark.done
}

// MarkDone records lines that were consumed without being submitted, such as
// blank or malformed input, so they do not hold back Completed.
func (p *Pool) MarkDone(line int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watermark.mark(line)
}

// RecordFailure counts a job that failed before reaching the pool.
func (p *Pool) RecordFailure(line int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary.add(Outcome{Job: Job{Line: line}, Err: err})
	p.watermark.mark(line)
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.process(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) process(job Job) {
	ctx := context.Background()

	out := Outcome{Job: job}
	for {
		out.Attempts++
		out.Result, out.Err = p.config.Verifier.VerifyAndStoreFact(ctx, job.Kind, job.Data)
		if out.Err == nil || !tms.IsRetryable(out.Err) || out.Attempts > int(p.config.MaxRetries) {
			break
		}
		p.logger.Warn("retrying candidate after store failure",
			logger.KeyLine, job.Line,
			"attempt", out.Attempts,
			logger.Err(out.Err),
		)
	}

	if out.Err != nil {
		p.logger.Error("candidate failed",
			logger.KeyLine, job.Line,
			logger.KeyKind, job.Kind,
			logger.KeyUserID, job.Data.UserID,
			logger.Err(out.Err),
		)
	}

	p.mu.Lock()
	p.summary.add(out)
	p.watermark.mark(job.Line)
	p.mu.Unlock()

	if p.config.OnOutcome != nil {
		p.config.OnOutcome(out)
	}
}

// watermark tracks the contiguous prefix of completed lines.
type watermark struct {
	done    int
	pending map[int]struct{}
}

func newWatermark(offset int) *watermark {
	return &watermark{done: offset, pending: make(map[int]struct{})}
}

func (w *watermark) mark(line int) {
	if line <= w.done {
		return
	}
	w.pending[line] = struct{}{}
	for {
		if _, ok := w.pending[w.done+1]; !ok {
			return
		}
		delete(w.pending, w.done+1)
		w.done++
	}
}
