// Package ingestcmder provides the ingest command for verifying a JSONL batch
// of fact candidates through a bounded worker pool.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/verity/cmd/verity/stack"
	"github.com/papercomputeco/verity/pkg/cliui"
	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/dotdir"
	"github.com/papercomputeco/verity/pkg/ingest"
	"github.com/papercomputeco/verity/pkg/resolve"
)

type ingestCommander struct {
	source    string
	resume    bool
	retries   uint
	workers   uint
	queueSize uint
	configDir string

	store stack.StoreFlags
	out   io.Writer
}

const ingestLongDesc string = `Verify a batch of fact candidates read from a JSONL file.

Each line is one candidate: a "kind" field (relational, risk or context)
next to the candidate fields user_id, subject, predicate, title, key, value,
confidence_score, source_authority and an optional valid_from.

Candidates are verified concurrently. Candidates about the same fact are
still applied one at a time, in the order the workers reach them.

With --resume, lines already processed by an earlier run over the same file
are skipped. Progress is checkpointed in the .verity/ directory when the run
ends or is interrupted.

Use "-" to read from stdin.

Examples:
  verity ingest facts.jsonl
  verity ingest facts.jsonl --workers 8 --resume
  extract-facts turn.txt | verity ingest -`

const ingestShortDesc string = "Verify a JSONL batch of fact candidates"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.source = args[0]
			cmder.out = cmd.OutOrStdout()
			cmder.configDir, _ = cmd.Flags().GetString(stack.FlagConfigDir)
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.resume, "resume", false, "Skip lines processed by an earlier run over the same file")
	cmd.Flags().UintVar(&cmder.retries, "retries", 2, "Retries per candidate after a store failure")
	config.AddUintFlag(cmd, config.StoreFlags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, config.StoreFlags, config.FlagQueueSize, &cmder.queueSize)

	stack.AddStoreFlags(cmd, &cmder.store)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, source, err := c.open(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer input.Close()

	ddm := dotdir.NewManager()
	skip := 0
	if c.resume && source != "" {
		cp, err := ddm.LoadCheckpoint(c.configDir)
		if err != nil {
			return fmt.Errorf("loading checkpoint: %w", err)
		}
		if cp != nil && cp.Source == source {
			skip = cp.Line
		}
	}

	s, err := stack.Open(ctx, cmd, config.FlagWorkers, config.FlagQueueSize)
	if err != nil {
		return err
	}
	defer s.Close()

	if skip > 0 {
		s.Logger.Info("resuming ingest", "source", source, "skip_lines", skip)
	}

	start := time.Now()
	summary, completed, readErr := ingest.Batch(ctx, ingest.Config{
		Verifier:   s.Engine,
		NumWorkers: s.Config.Ingest.Workers,
		QueueSize:  s.Config.Ingest.QueueSize,
		MaxRetries: c.retries,
		Offset:     skip,
		Logger:     s.Logger,
	}, input)
	elapsed := time.Since(start)
	if summary == nil {
		return readErr
	}

	if source != "" {
		cp := &dotdir.IngestCheckpoint{Source: source, Line: completed}
		if err := ddm.SaveCheckpoint(cp, c.configDir); err != nil {
			s.Logger.Warn("could not save ingest checkpoint", "error", err)
		}
	}

	PrintSummary(c.out, summary, elapsed)

	switch {
	case errors.Is(readErr, context.Canceled):
		return fmt.Errorf("ingest interrupted after line %d", completed)
	case readErr != nil:
		return readErr
	case summary.Failed() > 0:
		return fmt.Errorf("%d of %d candidates failed", summary.Failed(), summary.Processed)
	}
	return nil
}

// open returns the input and, for files, its absolute path.
func (c *ingestCommander) open(stdin io.Reader) (io.ReadCloser, string, error) {
	if c.source == "-" {
		return io.NopCloser(stdin), "", nil
	}

	abs, err := filepath.Abs(c.source)
	if err != nil {
		return nil, "", fmt.Errorf("resolving %s: %w", c.source, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, "", fmt.Errorf("opening input: %w", err)
	}
	return f, abs, nil
}

// PrintSummary renders per-action counts and failures.
func PrintSummary(w io.Writer, summary *ingest.Summary, elapsed time.Duration) {
	fmt.Fprintf(w, "\n  %s Processed %d candidates in %s\n\n",
		cliui.Mark(nil),
		summary.Processed,
		cliui.FormatDuration(elapsed),
	)

	for _, a := range []resolve.Action{
		resolve.ActionInsert,
		resolve.ActionConfirm,
		resolve.ActionUpdate,
		resolve.ActionContested,
		resolve.ActionSkip,
	} {
		if n := summary.Count(a); n > 0 {
			cliui.Field(w, cliui.Action(a.String()), fmt.Sprintf("%d", n))
		}
	}

	if summary.Failed() > 0 {
		fmt.Fprintf(w, "\n  %s %d failed\n", cliui.FailMark, summary.Failed())
		for _, f := range summary.Failures {
			fmt.Fprintf(w, "    %s %v\n", cliui.MutedStyle.Render(fmt.Sprintf("line %d:", f.Line)), f.Err)
		}
	}
	fmt.Fprintln(w)
}
