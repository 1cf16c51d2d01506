// Package enrichment fills missing covers and genres of catalog records
// from the lookup service with a bounded pool of workers.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultWorkers       = 8
	DefaultMinCoverBytes = 1500
	alternateISBNLimit   = 3
)

// Progress messages.
const (
	MsgStarting       = "Starting sync…"
	MsgStopped        = "Stopped"
	skippedComplete   = "Skipped (complete): "
	skippedDuplicate  = "Skipped (duplicate): "
	skippedNoID       = "Skipped (no book_id): "
	partCoverStored   = "Downloaded cover"
	partCoverMissing  = "Cover missing"
	partGenreEnriched = "Genre enriched"
	partGenreMissing  = "Genre missing"
)

// ProgressFunc receives the number of finished books, the batch size and a
// message about the last finished book. It may be called from any worker.
type ProgressFunc func(done, total int, msg string)

// Lookup is the remote service used to enrich books.
type Lookup interface {
	Best(ctx context.Context, title, author, isbn string) (*openlibrary.Doc, error)
	CoverByISBN(ctx context.Context, isbn, size string) ([]byte, error)
	CoverByID(ctx context.Context, id int64, size string) ([]byte, error)
}

// Target is the store the engine reads completeness from and writes
// results to. Implementations serialize these calls themselves.
type Target interface {
	NeedsCover(id string) bool
	NeedsGenre(id string) bool
	// StoreCover writes the cover, indexes it and removes id from the cover queue.
	StoreCover(id, filename string, data []byte) error
	// ApplyDocument merges doc into the record and removes it from the genre
	// queue once its genre is clean. It reports whether the record changed.
	ApplyDocument(id string, doc *openlibrary.Doc) (bool, error)
	// BeginCoverRun starts journaling cover writes.
	BeginCoverRun()
	// EndCoverRun keeps or reverts the cover writes made since BeginCoverRun.
	EndCoverRun(rollback bool) error
	SaveQueues() error
}

// Options tunes one run.
type Options struct {
	// Workers bounds concurrently processed books.
	Workers int
	// Delay is the courtesy pause after each processed book.
	Delay time.Duration
	// Progress is optional.
	Progress ProgressFunc
	// Stopper lets the caller end the run early; nil means never.
	Stopper *Stopper
	// Cover validates downloaded cover payloads.
	Cover fileutil.CoverOptions
}

// Summary holds the counts of one run.
type Summary struct {
	Total      int     `json:"total"`
	Downloaded int     `json:"downloaded"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	Enriched   int     `json:"enriched"`
	Outcome    Outcome `json:"-"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d books, %d covers downloaded, %d enriched, %d skipped, %d failed",
		s.Outcome, s.Total, s.Downloaded, s.Enriched, s.Skipped, s.Failed)
}

// Engine runs enrichment batches against one target.
type Engine struct {
	lookup Lookup
	target Target
}

// NewEngine creates an engine.
func NewEngine(lookup Lookup, target Target) *Engine {
	return &Engine{lookup: lookup, target: target}
}

type result struct {
	msg        string
	downloaded bool
	enriched   bool
	failed     bool
	skipped    bool
}

func stoppedResult() result { return result{msg: MsgStopped, skipped: true} }

// Run processes books, ISBN-bearing ones first. Cancelling ctx behaves like
// Stopper.Cancel. The returned error only reports persistence failures; a
// stopped run is not an error and is reported through Summary.Outcome.
func (e *Engine) Run(ctx context.Context, books []catalog.Book, opts Options) (Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if opts.Cover.MinBytes <= 0 {
		opts.Cover.MinBytes = DefaultMinCoverBytes
	}
	stopper := opts.Stopper
	if stopper == nil {
		stopper = NewStopper()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopper.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	ordered := make([]catalog.Book, len(books))
	copy(ordered, books)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CanonicalISBN() != "" && ordered[j].CanonicalISBN() == ""
	})

	summary := Summary{Total: len(ordered)}
	var mu sync.Mutex
	done := 0
	record := func(r result) {
		mu.Lock()
		defer mu.Unlock()
		done++
		switch {
		case r.downloaded:
			summary.Downloaded++
		case r.skipped:
			summary.Skipped++
		}
		if r.enriched {
			summary.Enriched++
		}
		if r.failed {
			summary.Failed++
		}
		if opts.Progress != nil {
			opts.Progress(done, summary.Total, r.msg)
		}
	}

	if opts.Progress != nil {
		opts.Progress(0, summary.Total, MsgStarting)
	}
	slog.Info("Sync started", "books", summary.Total, "workers", workers)

	e.target.BeginCoverRun()
	w := &worker{
		lookup:  e.lookup,
		target:  e.target,
		stopper: stopper,
		docs:    newDocCache(e.lookup),
		opts:    opts,
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	seen := make(map[string]struct{}, len(ordered))
	for _, b := range ordered {
		if stopper.Stopped() || runCtx.Err() != nil {
			break
		}
		id := strings.TrimSpace(b.ID)
		if id != "" {
			if _, dup := seen[id]; dup {
				record(result{msg: skippedDuplicate + b.DisplayTitle(), skipped: true})
				continue
			}
			seen[id] = struct{}{}
		}
		g.Go(func() error {
			record(w.process(runCtx, b))
			return nil
		})
	}
	_ = g.Wait()

	summary.Outcome = stopper.Requested()
	if summary.Outcome == Completed && ctx.Err() != nil {
		summary.Outcome = Cancelled
	}

	var errs []error
	if err := e.target.EndCoverRun(summary.Outcome == Cancelled); err != nil {
		errs = append(errs, fmt.Errorf("finishing cover run: %w", err))
	}
	if err := e.target.SaveQueues(); err != nil {
		errs = append(errs, fmt.Errorf("saving queues: %w", err))
	}

	slog.Info("Sync finished", "outcome", summary.Outcome, "downloaded", summary.Downloaded,
		"enriched", summary.Enriched, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, errors.Join(errs...)
}
