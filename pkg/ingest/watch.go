package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/verity/pkg/logger"
)

const (
	spoolExt     = ".jsonl"
	doneSuffix   = ".done"
	failedSuffix = ".failed"
)

// FileHandler ingests one spooled batch file.
type FileHandler func(ctx context.Context, path string) error

// WatchSpool handles every *.jsonl file already in dir and then each one that
// appears there, one at a time, until ctx is done. A handled file is renamed
// with a ".done" suffix, or ".failed" when handle returned an error, so a
// restarted watcher never sees it again.
//
// Producers must write batches elsewhere and rename them into dir: a file is
// picked up as soon as it is created.
func WatchSpool(ctx context.Context, dir string, handle FileHandler, l *slog.Logger) error {
	log := logger.Component(l, "spool")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating spool watcher: %w", err)
	}
	defer watcher.Close()

	// Watch before listing so nothing created in between is missed.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching spool dir: %w", err)
	}

	existing, err := spooled(dir)
	if err != nil {
		return err
	}
	for _, path := range existing {
		if err := ctx.Err(); err != nil {
			return err
		}
		processSpooled(ctx, path, handle, log)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 || filepath.Ext(event.Name) != spoolExt {
				continue
			}
			processSpooled(ctx, event.Name, handle, log)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("spool watcher error: %w", err)
		}
	}
}

// spooled lists the pending batch files in dir in name order.
func spooled(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading spool dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), spoolExt) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func processSpooled(ctx context.Context, path string, handle FileHandler, log *slog.Logger) {
	// Already handled from the initial listing.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}

	log.Info("ingesting spooled batch", "path", path)

	suffix := doneSuffix
	if err := handle(ctx, path); err != nil {
		log.Error("spooled batch failed", "path", path, logger.Err(err))
		suffix = failedSuffix
	}

	if err := os.Rename(path, path+suffix); err != nil {
		log.Error("could not mark spooled batch", "path", path, logger.Err(err))
	}
}
