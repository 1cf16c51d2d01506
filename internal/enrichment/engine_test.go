package enrichment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
	"github.com/lepinkainen/shelfkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressLog struct {
	mu    sync.Mutex
	msgs  []string
	dones []int
}

func (p *progressLog) fn(done, total int, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dones = append(p.dones, done)
	p.msgs = append(p.msgs, msg)
}

func book(id, title, isbn13, genreName string) catalog.Book {
	return catalog.Book{ID: id, Title: title, ISBN13: isbn13, Genre: genreName, Tags: []string{}}
}

func TestRunDownloadsAndEnriches(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()
	lookup.covers["9780441172719-L"] = testutil.CoverImageSeed(t, 40, 60, 1)
	lookup.covers["id:42"] = testutil.CoverImageSeed(t, 40, 60, 2)
	lookup.docs["9780441172719"] = &openlibrary.Doc{
		Key:        "/works/OL893415W",
		Subjects:   []string{"Science fiction", "Space opera"},
		Publishers: []string{"Ace"},
	}
	lookup.docs["Hyperion"] = &openlibrary.Doc{CoverID: 42}

	books := []catalog.Book{
		book("fallback:nowhere", "Nowhere", "", ""),
		book("fallback:hyperion", "Hyperion", "", "Science Fiction"),
		book("isbn:9780441172719", "Dune", "9780441172719", ""),
	}
	target := newMemTarget(t, env, books...)
	progress := &progressLog{}

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{
		Workers:  1,
		Progress: progress.fn,
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{Total: 3, Downloaded: 2, Enriched: 1, Failed: 1, Outcome: Completed}, summary)
	assert.Equal(t, []string{
		MsgStarting,
		"Downloaded cover + Genre enriched: Dune",
		"Cover missing + Genre missing: Nowhere",
		"Downloaded cover: Hyperion",
	}, progress.msgs)
	assert.Equal(t, []int{0, 1, 2, 3}, progress.dones)

	assert.Equal(t, "9780441172719.jpg", target.covers.Filename("isbn:9780441172719"))
	assert.Equal(t, "olid_42.jpg", target.covers.Filename("fallback:hyperion"))
	assert.ElementsMatch(t, []string{"9780441172719.jpg", "olid_42.jpg"}, env.ListFiles("covers"))

	dune := target.books["isbn:9780441172719"]
	assert.Equal(t, "Science Fiction", dune.Genre)
	assert.Equal(t, []string{"space opera"}, dune.Tags)
	assert.Equal(t, "Ace", dune.Publisher)
	assert.Equal(t, "/works/OL893415W", dune.OpenLibraryWorkKey)

	assert.Equal(t, map[string]bool{"fallback:nowhere": true}, target.coverQ)
	assert.Equal(t, map[string]bool{"fallback:nowhere": true}, target.genreQ)
	assert.Equal(t, 1, target.saves)
}

func TestRunRejectsPlaceholderCovers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()
	lookup.covers["9780441172719-L"] = make([]byte, 800)
	lookup.covers["9780441172719-M"] = testutil.CoverImage(t, 30, 30)
	lookup.covers["9780000000002-L"] = make([]byte, 4000) // large but not an image

	books := []catalog.Book{
		book("isbn:9780441172719", "Dune", "9780441172719", "Fantasy"),
		book("isbn:9780000000002", "Broken", "9780000000002", "Fantasy"),
	}
	target := newMemTarget(t, env, books...)

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, testutil.CoverImage(t, 30, 30), env.ReadFile("covers/9780441172719.jpg"))
	assert.False(t, target.covers.HasCover("isbn:9780000000002"))
}

func TestRunAlternateISBNs(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()
	lookup.docs["Old Book"] = &openlibrary.Doc{ISBNs: []string{"123", "0441172717", "0000000001", "0000000002", "0441013597"}}
	lookup.covers["0441013597-L"] = testutil.CoverImage(t, 30, 30)
	lookup.covers["0000000002-M"] = testutil.CoverImage(t, 31, 31)

	books := []catalog.Book{book("fallback:old", "Old Book", "", "Poetry")}
	target := newMemTarget(t, env, books...)

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{})
	require.NoError(t, err)

	// Only the first three usable ISBNs are tried.
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, "0000000002.jpg", target.covers.Filename("fallback:old"))
}

func TestRunSkips(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()

	complete := book("isbn:1", "Complete", "", "Fantasy")
	books := []catalog.Book{complete, {Title: "No Id"}}
	target := newMemTarget(t, env, complete)
	require.NoError(t, target.covers.Put("isbn:1", "1.jpg", testutil.CoverImage(t, 10, 10)))

	progress := &progressLog{}
	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 1, Progress: progress.fn})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.ElementsMatch(t, []string{"Skipped (complete): Complete", "Skipped (no book_id): No Id"}, progress.msgs[1:])
	assert.Zero(t, lookup.calls.Load())
}

func TestRunDuplicateIDs(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()
	lookup.covers["9780441172719-L"] = testutil.CoverImage(t, 40, 40)

	dune := book("isbn:9780441172719", "Dune", "9780441172719", "Fantasy")
	books := []catalog.Book{dune, dune, dune}
	target := newMemTarget(t, env, dune)
	progress := &progressLog{}

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 4, Progress: progress.fn})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, []string{"9780441172719.jpg"}, env.ListFiles("covers"))
	assert.Len(t, target.covers.Index(), 1)
	assert.EqualValues(t, 1, lookup.calls.Load())
	assert.Equal(t, 2, countMsg(progress.msgs, "Skipped (duplicate): Dune"))
}

func TestRunRespectsWorkerBound(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()

	var active, peak atomic.Int32
	lookup.onCover = func(string) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
	}

	var books []catalog.Book
	for _, isbn := range []string{"9780000000001", "9780000000002", "9780000000003", "9780000000004", "9780000000005", "9780000000006"} {
		books = append(books, book("isbn:"+isbn, isbn, isbn, "Fantasy"))
	}
	target := newMemTarget(t, env, books...)

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Failed)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunSharesDocumentsWithinRun(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()

	books := []catalog.Book{
		book("fallback:a", "Same Title", "", "Fantasy"),
		book("fallback:b", "same   title", "", "Fantasy"),
		book("fallback:c", "Same Title", "", "Fantasy"),
	}
	target := newMemTarget(t, env, books...)

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Failed)
	assert.EqualValues(t, 1, lookup.docCalls.Load(), "misses are cached for the run")
}

// stopScenario prepares a covers directory with one indexed cover and one
// unindexed file that the run will overwrite, then returns three books whose
// third cover request triggers stop.
func stopScenario(t *testing.T, env *testutil.TestEnv, stop func()) (*fakeLookup, *memTarget, []catalog.Book) {
	t.Helper()

	lookup := newFakeLookup()
	books := []catalog.Book{
		book("isbn:9780000000001", "One", "9780000000001", "Fantasy"),
		book("isbn:9780000000002", "Two", "9780000000002", "Fantasy"),
		book("isbn:9780000000003", "Three", "9780000000003", "Fantasy"),
	}
	for i, b := range books {
		lookup.covers[b.ISBN13+"-L"] = testutil.CoverImageSeed(t, 20, 20, int64(i+10))
	}
	lookup.onCover = func(key string) {
		if key == "9780000000003-L" {
			stop()
		}
	}

	target := newMemTarget(t, env, books...)
	require.NoError(t, target.covers.Put("isbn:keep", "keep.jpg", testutil.CoverImage(t, 10, 10)))
	require.NoError(t, target.covers.Save())
	env.WriteFile("covers/9780000000002.jpg", []byte("previous bytes"))
	return lookup, target, books
}

func TestRunCancelRestoresCovers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	stopper := NewStopper()
	lookup, target, books := stopScenario(t, env, stopper.Cancel)

	beforeFiles := env.Snapshot("covers")
	beforeIndex := env.ReadFileString("cover_index.json")

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 1, Stopper: stopper})
	require.NoError(t, err)

	assert.Equal(t, Cancelled, summary.Outcome)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, beforeFiles, env.Snapshot("covers"))
	assert.Equal(t, beforeIndex, env.ReadFileString("cover_index.json"))
	assert.Equal(t, map[string]string{"isbn:keep": "keep.jpg"}, target.covers.Index())
	assert.True(t, target.coverQ["isbn:9780000000001"])
	assert.True(t, target.coverQ["isbn:9780000000002"])
}

func TestRunStopAndSaveKeepsCovers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	stopper := NewStopper()
	lookup, target, books := stopScenario(t, env, stopper.StopAndSave)

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Workers: 1, Stopper: stopper})
	require.NoError(t, err)

	assert.Equal(t, Stopped, summary.Outcome)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.Skipped)
	assert.ElementsMatch(t, []string{"keep.jpg", "9780000000001.jpg", "9780000000002.jpg"}, env.ListFiles("covers"))
	assert.NotEqual(t, "previous bytes", env.ReadFileString("covers/9780000000002.jpg"))
	assert.Contains(t, env.ReadFileString("cover_index.json"), "isbn:9780000000002")
	assert.False(t, target.covers.HasCover("isbn:9780000000003"))
}

func TestRunContextCancelActsAsCancel(t *testing.T) {
	env := testutil.NewTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lookup, target, books := stopScenario(t, env, cancel)

	before := env.Snapshot("covers")
	summary, err := NewEngine(lookup, target).Run(ctx, books, Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, Cancelled, summary.Outcome)
	assert.Equal(t, before, env.Snapshot("covers"))
}

func TestRunStoppedBeforeStart(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lookup := newFakeLookup()
	books := []catalog.Book{book("isbn:1", "One", "", "")}
	target := newMemTarget(t, env, books...)

	stopper := NewStopper()
	stopper.StopAndSave()

	summary, err := NewEngine(lookup, target).Run(context.Background(), books, Options{Stopper: stopper})
	require.NoError(t, err)
	assert.Equal(t, Stopped, summary.Outcome)
	assert.Zero(t, lookup.calls.Load())
	assert.Equal(t, 1, target.saves)
}

func TestStopperFirstRequestWins(t *testing.T) {
	s := NewStopper()
	assert.False(t, s.Stopped())
	assert.Equal(t, Completed, s.Requested())

	s.StopAndSave()
	s.Cancel()
	assert.Equal(t, Stopped, s.Requested())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after a stop request")
	}
	assert.Equal(t, "stopped", s.Requested().String())
}

func TestSummaryString(t *testing.T) {
	s := Summary{Total: 5, Downloaded: 2, Enriched: 1, Skipped: 1, Failed: 1, Outcome: Cancelled}
	assert.Equal(t, "cancelled: 5 books, 2 covers downloaded, 1 enriched, 1 skipped, 1 failed", s.String())
}

func TestDocKey(t *testing.T) {
	assert.Equal(t, "ISBN:9780441172719", docKey("Dune", "Frank Herbert", "978-0-441-17271-9"))
	assert.Equal(t, "TA:dune|frank herbert", docKey(" Dune", "FRANK  Herbert", ""))
}

func countMsg(msgs []string, want string) int {
	n := 0
	for _, m := range msgs {
		if m == want {
			n++
		}
	}
	return n
}
