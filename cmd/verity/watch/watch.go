// Package watchcmder provides the watch command for ingesting JSONL batches
// as they are spooled into a directory.
package watchcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ingestcmder "github.com/papercomputeco/verity/cmd/verity/ingest"
	"github.com/papercomputeco/verity/cmd/verity/stack"
	"github.com/papercomputeco/verity/pkg/config"
	"github.com/papercomputeco/verity/pkg/ingest"
)

type watchCommander struct {
	dir       string
	retries   uint
	workers   uint
	queueSize uint

	store stack.StoreFlags
	out   io.Writer
}

const watchLongDesc string = `Watch a spool directory and ingest each JSONL batch dropped into it.

Batch files use the same format as "verity ingest". Producers should write
each batch elsewhere and rename it into the directory when complete. Files
already present are ingested first, in name order.

A batch is renamed with a .done suffix once ingested, or .failed when any of
its candidates failed, so restarting the watcher never ingests it twice.

Stop with Ctrl+C.

Examples:
  verity watch ./spool
  verity watch ./spool --workers 8 --storage-provider postgres`

const watchShortDesc string = "Ingest JSONL batches spooled into a directory"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.dir = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd)
		},
	}

	cmd.Flags().UintVar(&cmder.retries, "retries", 2, "Retries per candidate after a store failure")
	config.AddUintFlag(cmd, config.StoreFlags, config.FlagWorkers, &cmder.workers)
	config.AddUintFlag(cmd, config.StoreFlags, config.FlagQueueSize, &cmder.queueSize)

	stack.AddStoreFlags(cmd, &cmder.store)

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("opening spool dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}

	s, err := stack.Open(ctx, cmd, config.FlagWorkers, config.FlagQueueSize)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Logger.Info("watching spool directory", "dir", c.dir)

	handle := func(ctx context.Context, path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		start := time.Now()
		summary, _, err := ingest.Batch(ctx, ingest.Config{
			Verifier:   s.Engine,
			NumWorkers: s.Config.Ingest.Workers,
			QueueSize:  s.Config.Ingest.QueueSize,
			MaxRetries: c.retries,
			Logger:     s.Logger,
		}, f)
		if summary != nil {
			fmt.Fprintf(c.out, "\n  %s\n", path)
			ingestcmder.PrintSummary(c.out, summary, time.Since(start))
		}
		if err != nil {
			return err
		}
		if summary.Failed() > 0 {
			return fmt.Errorf("%d of %d candidates failed", summary.Failed(), summary.Processed)
		}
		return nil
	}

	err = ingest.WatchSpool(ctx, c.dir, handle, s.Logger)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
