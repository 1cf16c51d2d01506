package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/config"
	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
	"github.com/lepinkainen/shelfkeeper/internal/errors"
	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
	"github.com/lepinkainen/shelfkeeper/internal/library"
)

// SyncCmd represents the sync command
type SyncCmd struct {
	Workers     int           `short:"w" help:"Concurrent workers (defaults to sync.workers)"`
	Delay       time.Duration `help:"Pause after each book (defaults to sync.delay)"`
	Interactive bool          `short:"i" help:"Show a progress view with cancel (c) and stop & save (s)"`
}

func (s *SyncCmd) options() enrichment.Options {
	workers := config.SyncWorkers
	if s.Workers > 0 {
		workers = s.Workers
	}
	delay := config.SyncDelay
	if s.Delay > 0 {
		delay = s.Delay
	}
	return enrichment.Options{
		Workers: workers,
		Delay:   delay,
		Cover: fileutil.CoverOptions{
			MinBytes: config.CoverMinBytes,
			MaxWidth: config.CoverMaxWidth,
		},
	}
}

func (s *SyncCmd) Run() error {
	return withLibrary(func(lib *library.Library) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		lookup := newLookup()
		opts := s.options()
		run := func(progress enrichment.ProgressFunc, stopper *enrichment.Stopper) (enrichment.Summary, error) {
			opts.Progress = progress
			opts.Stopper = stopper
			return lib.Sync(ctx, lookup, opts)
		}

		var (
			summary enrichment.Summary
			err     error
		)
		if s.Interactive {
			summary, err = runSyncView("Syncing library", run)
		} else {
			summary, err = run(logProgress, nil)
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cover, genre := lib.QueueLens()
		slog.Info("Sync summary", "summary", summary.String(), "cover_queue", cover, "genre_queue", genre)
		if summary.Outcome == enrichment.Cancelled {
			return errors.NewStopProcessingError("sync cancelled, covers from this run were rolled back")
		}
		return nil
	})
}

func logProgress(done, total int, msg string) {
	slog.Debug("Sync progress", "done", done, "total", total, "message", msg)
}
